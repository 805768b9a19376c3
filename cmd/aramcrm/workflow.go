package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infohyun/aramcrm-sub001/internal/cli"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

var workflowCmd = &cobra.Command{
	Use:     "workflow",
	Aliases: []string{"wf"},
	Short:   "Create, inspect and edit workflows",
}

var workflowListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		trigger, _ := cmd.Flags().GetString("trigger")
		active, _ := cmd.Flags().GetString("active")
		limit, _ := cmd.Flags().GetInt("limit")
		opts, err := cli.ListOptions(trigger, active, limit)
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.Service.List(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return cli.PrintList(cmd.OutOrStdout(), list)
	},
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <workflow-id>",
	Short: "Show a workflow as an ordered chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		wf, err := rt.Service.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.Show(cmd.OutOrStdout(), wf, cli.StdoutShowOptions(asJSON))
	},
}

var workflowCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a workflow from flags or a JSON/YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		var wf *domain.Workflow
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			wf, err = cli.Import(cmd.Context(), rt.Service, file)
		} else {
			in := workflow.CreateInput{}
			in.Name, _ = cmd.Flags().GetString("name")
			in.Description, _ = cmd.Flags().GetString("description")
			in.IsActive, _ = cmd.Flags().GetBool("active")
			trigger, _ := cmd.Flags().GetString("trigger")
			if in.Trigger, err = domain.ParseTrigger(trigger); err != nil {
				return err
			}
			wf, err = rt.Service.Create(cmd.Context(), in)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), wf.ID)
		return nil
	},
}

var workflowAppendCmd = &cobra.Command{
	Use:   "append <workflow-id> <type> <label>",
	Short: "Append a step to the end of the chain",
	Long:  `Appends a node after the current last step. Types: trigger, condition, action, notification, delay, approval.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeType, err := domain.ParseNodeType(args[1])
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		_, node, err := rt.Service.AppendNode(cmd.Context(), args[0], nodeType, args[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), node.ID)
		return nil
	},
}

var workflowRemoveNodeCmd = &cobra.Command{
	Use:   "rm-node <workflow-id> <node-id>",
	Short: "Remove a step and bridge its neighbours",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		wf, err := rt.Service.RemoveNode(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return cli.Show(cmd.OutOrStdout(), wf, cli.ShowOptions{})
	},
}

var workflowDeleteCmd = &cobra.Command{
	Use:   "rm <workflow-id>",
	Short: "Delete a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		return rt.Service.Delete(cmd.Context(), args[0])
	},
}

var workflowExportCmd = &cobra.Command{
	Use:   "export <workflow-id>",
	Short: "Print the stored workflow document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		wf, err := rt.Service.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(wf)
	},
}

func init() {
	rootCmd.AddCommand(workflowCmd)
	workflowCmd.AddCommand(workflowListCmd, workflowShowCmd, workflowCreateCmd,
		workflowAppendCmd, workflowRemoveNodeCmd, workflowDeleteCmd, workflowExportCmd)

	workflowListCmd.Flags().String("trigger", "", "Only workflows with this trigger")
	workflowListCmd.Flags().String("active", "", "Filter by status: true or false")
	workflowListCmd.Flags().Int("limit", 0, "Maximum number of workflows (0 = all)")

	workflowShowCmd.Flags().Bool("json", false, "Print the chain view as JSON")

	workflowCreateCmd.Flags().String("name", "", "Workflow name")
	workflowCreateCmd.Flags().String("description", "", "Workflow description")
	workflowCreateCmd.Flags().String("trigger", string(domain.TriggerManual), "Trigger event")
	workflowCreateCmd.Flags().Bool("active", false, "Activate the workflow")
	workflowCreateCmd.Flags().StringP("file", "f", "", "Import a JSON or YAML workflow document")
	workflowCreateCmd.MarkFlagsMutuallyExclusive("file", "name")
}
