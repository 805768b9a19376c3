/*
Package dsl provides a fluent Go builder for linear workflow chains.

It lets code and tests describe an automation step by step instead of hand-writing
nodes and edges. Nodes are laid out and connected by the same chain editor the
service uses, so a built workflow is always a valid chain.

Example usage:

	package main

	import (
		"github.com/infohyun/aramcrm-sub001/pkg/domain"
		"github.com/infohyun/aramcrm-sub001/pkg/dsl"
	)

	func main() {
		b := dsl.New("VIP escalation", domain.TriggerTicketCreated)

		b.Condition("VIP?").
			Config("field", "customer.tier").
			Config("equals", "vip")

		b.Action("Send Email").
			When("yes").
			Config("template", "vip-ack")

		wf, err := b.Build()
		// ... pass wf.Nodes and wf.Edges to workflow.Service.Create
	}
*/
package dsl
