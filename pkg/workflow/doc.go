/*
Package workflow is the application service of the workflow builder.

Service owns every use case exposed by the HTTP, MCP and CLI adapters: CRUD of
workflows, chain edits (append and remove a node), the linearized chain view
and run bookkeeping. Each read-modify-write happens under a per-workflow lock,
optionally backed by a ports.DistributedLocker so several replicas can share a
store. Successful mutations are reported through domain.Hooks.
*/
package workflow
