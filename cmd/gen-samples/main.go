package main

import (
	"context"
	"fmt"
	"os"

	"github.com/infohyun/aramcrm-sub001/internal/adapters/file"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/dsl"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

func main() {
	targetDir := ".aramcrm/workflows"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	fmt.Printf("Generating sample workflows in: %s\n", targetDir)

	// The file store creates targetDir on first save.
	svc := workflow.NewService(file.New(targetDir, file.FormatYAML))
	ctx := context.Background()

	// 1. Ticket escalation for VIP customers
	vip := dsl.New("VIP escalation", domain.TriggerTicketCreated).
		Description("Route tickets from VIP customers to the senior queue.").
		Active()
	vip.Condition("Customer tier is VIP").Config("field", "customer.tier").Config("equals", "vip")
	vip.Action("Assign to senior queue").When("yes").Config("queue", "senior")
	vip.Notify("Notify account manager").Config("channel", "email")
	create(ctx, svc, vip)

	// 2. NPS detractor follow-up
	nps := dsl.New("NPS detractor follow-up", domain.TriggerNPSSubmitted).Active()
	nps.Condition("Score below 7").Config("field", "nps.score").Config("lt", 7)
	nps.Delay("Wait one day").When("detractor").Config("duration", "24h")
	nps.Action("Open follow-up ticket")
	create(ctx, svc, nps)

	// 3. Stock replenishment with approval (inactive draft)
	stock := dsl.New("Replenish stock", domain.TriggerInventoryLow).
		Description("Draft purchase orders when inventory runs low.")
	stock.Action("Draft purchase order")
	stock.Approval("Manager approval").Config("role", "purchasing")
	stock.Notify("Send PO to supplier")
	create(ctx, svc, stock)

	fmt.Println("Done. Verify contents in", targetDir)
}

func create(ctx context.Context, svc *workflow.Service, b *dsl.Builder) {
	in, err := b.CreateInput()
	check(err)
	wf, err := svc.Create(ctx, in)
	check(err)
	fmt.Printf("  %s  %s (%d steps)\n", wf.ID, wf.Name, len(wf.Nodes))
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
