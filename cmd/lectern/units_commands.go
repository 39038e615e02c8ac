package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/procstate"
)

func newUnitsCommand(ctx *commandContext) *cobra.Command {
	unitsCmd := &cobra.Command{
		Use:   "units",
		Short: "Inspect and manage lecture units",
	}

	unitsCmd.AddCommand(newUnitsListCommand(ctx))
	unitsCmd.AddCommand(newUnitsShowCommand(ctx))
	unitsCmd.AddCommand(newUnitsAddCommand(ctx))
	unitsCmd.AddCommand(newUnitsTriggerCommand(ctx))
	unitsCmd.AddCommand(newUnitsRetryCommand(ctx))
	unitsCmd.AddCommand(newUnitsCancelCommand(ctx))
	unitsCmd.AddCommand(newUnitsDeleteCommand(ctx))

	return unitsCmd
}

func newUnitsListCommand(ctx *commandContext) *cobra.Command {
	var phaseFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lecture units and their processing phases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *procstate.Store) error {
				units, err := store.ListUnits(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(units))
				for _, unit := range units {
					state, err := store.StateByUnit(cmd.Context(), unit.ID)
					if err != nil {
						return err
					}
					phase := "-"
					retries := "-"
					errMsg := ""
					if state != nil {
						phase = string(state.Phase)
						retries = strconv.Itoa(state.RetryCount)
						errMsg = state.ErrorMessage
					}
					if phaseFilter != "" && phase != phaseFilter {
						continue
					}
					rows = append(rows, []string{
						strconv.FormatInt(unit.ID, 10),
						strconv.FormatInt(unit.LectureID, 10),
						unit.Title,
						phase,
						retries,
						errMsg,
					})
				}

				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No units")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Lecture", "Title", "Phase", "Retries", "Error"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&phaseFilter, "phase", "p", "", "Only show units in the given phase")
	return cmd
}

func newUnitsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <unit-id>",
		Short: "Show a unit's details and processing state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUnitID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *procstate.Store) error {
				unit, err := store.GetUnit(cmd.Context(), id)
				if err != nil {
					return err
				}
				if unit == nil {
					return fmt.Errorf("unit %d not found", id)
				}
				state, err := store.StateByUnit(cmd.Context(), id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Unit %d\n", unit.ID)
				fmt.Fprintf(out, "  Lecture:            %d\n", unit.LectureID)
				fmt.Fprintf(out, "  Title:              %s\n", unit.Title)
				fmt.Fprintf(out, "  Tutorial:           %s\n", yesNo(unit.Tutorial))
				fmt.Fprintf(out, "  Video source:       %s\n", valueOrDash(unit.VideoSource))
				fmt.Fprintf(out, "  Attachment:         %s\n", valueOrDash(unit.AttachmentLink))
				if unit.AttachmentVersion > 0 {
					fmt.Fprintf(out, "  Attachment version: %d\n", unit.AttachmentVersion)
				}
				if state == nil {
					fmt.Fprintln(out, "  Processing:         never started")
					return nil
				}
				fmt.Fprintf(out, "  Phase:              %s\n", state.Phase)
				fmt.Fprintf(out, "  Retries:            %d\n", state.RetryCount)
				if state.NextRetryAt != nil {
					fmt.Fprintf(out, "  Next retry:         %s\n", state.NextRetryAt.Local())
				}
				if state.PlaylistURL != "" {
					fmt.Fprintf(out, "  Playlist:           %s\n", state.PlaylistURL)
				}
				if state.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:              %s\n", state.ErrorMessage)
				}

				transcript, err := store.TranscriptByUnit(cmd.Context(), id)
				if err != nil {
					return err
				}
				if transcript != nil {
					fmt.Fprintf(out, "  Transcript:         %s (job %s)\n", transcript.Status, transcript.JobID)
				}
				return nil
			})
		},
	}
}

func newUnitsAddCommand(ctx *commandContext) *cobra.Command {
	var req api.UnitRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a lecture unit and trigger processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.LectureID <= 0 {
				return fmt.Errorf("--lecture is required")
			}
			return ctx.withClient(func(client *api.Client) error {
				unit, err := client.SaveUnit(cmd.Context(), req)
				if err != nil {
					return err
				}
				phase := "idle"
				if unit.Processing != nil {
					phase = unit.Processing.Phase
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved unit %d (%s)\n", unit.ID, phase)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&req.ID, "id", 0, "Existing unit id to update")
	cmd.Flags().Int64Var(&req.LectureID, "lecture", 0, "Lecture id the unit belongs to")
	cmd.Flags().StringVar(&req.Title, "title", "", "Unit title")
	cmd.Flags().BoolVar(&req.Tutorial, "tutorial", false, "Mark the unit as a tutorial")
	cmd.Flags().StringVar(&req.VideoSource, "video", "", "Video source identifier")
	cmd.Flags().StringVar(&req.AttachmentLink, "attachment", "", "Attachment (PDF) link")
	cmd.Flags().Int64Var(&req.AttachmentVersion, "attachment-version", 0, "Attachment version number")
	return cmd
}

func newUnitsTriggerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <unit-id>",
		Short: "Trigger processing for a unit",
		Args:  cobra.ExactArgs(1),
		RunE:  unitActionRunE(ctx, "Triggered unit %d\n", (*api.Client).TriggerUnit),
	}
}

func newUnitsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <unit-id>",
		Short: "Retry a failed unit from scratch",
		Args:  cobra.ExactArgs(1),
		RunE:  unitActionRunE(ctx, "Retrying unit %d\n", (*api.Client).RetryUnit),
	}
}

func newUnitsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <unit-id>",
		Short: "Cancel in-flight processing for a unit",
		Args:  cobra.ExactArgs(1),
		RunE:  unitActionRunE(ctx, "Cancelled unit %d\n", (*api.Client).CancelUnit),
	}
}

func newUnitsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <unit-id>",
		Short: "Delete a unit and its processing state",
		Args:  cobra.ExactArgs(1),
		RunE:  unitActionRunE(ctx, "Deleted unit %d\n", (*api.Client).DeleteUnit),
	}
}

func unitActionRunE(ctx *commandContext, message string, action func(*api.Client, context.Context, int64) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseUnitID(args[0])
		if err != nil {
			return err
		}
		return ctx.withClient(func(client *api.Client) error {
			if err := action(client, cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), message, id)
			return nil
		})
	}
}

func parseUnitID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid unit id %q", arg)
	}
	return id, nil
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
