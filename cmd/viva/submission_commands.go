package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"viva/internal/config"
	"viva/internal/grading"
	"viva/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				var statuses []store.Status
				for _, value := range strings.Split(statusFlag, ",") {
					if strings.TrimSpace(value) == "" {
						continue
					}
					status, ok := store.ParseStatus(value)
					if !ok {
						return fmt.Errorf("unknown status %q (known: %s)", value, knownStatuses())
					}
					statuses = append(statuses, status)
				}

				subs, err := st.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(subs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no submissions")
					return nil
				}

				rows := make([][]string, 0, len(subs))
				for _, sub := range subs {
					grade := ""
					if sub.Status == store.StatusGraded || sub.Status == store.StatusReviewed {
						grade = grading.FormatMultiplier(sub.GradeMultiplier)
					}
					rows = append(rows, []string{
						sub.SessionID,
						sub.StudentName,
						string(sub.Status),
						formatDurationSeconds(sub.CallDurationSeconds),
						grade,
						sub.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"SESSION", "STUDENT", "STATUS", "CALL", "GRADE", "CREATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Comma-separated status filter")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var fullFlag bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one submission in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				sub, err := st.GetBySessionID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if sub == nil {
					return fmt.Errorf("submission %s not found", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session:     %s\n", sub.SessionID)
				fmt.Fprintf(out, "Student:     %s\n", sub.StudentName)
				fmt.Fprintf(out, "Status:      %s\n", sub.Status)
				fmt.Fprintf(out, "Created:     %s\n", sub.CreatedAt.Local().Format(time.RFC1123))
				if sub.DefenseStartedAt != nil {
					fmt.Fprintf(out, "Defense at:  %s\n", sub.DefenseStartedAt.Local().Format(time.RFC1123))
				}
				if sub.ConversationID != "" {
					fmt.Fprintf(out, "Conversation: %s (%s)\n", sub.ConversationID, formatDurationSeconds(sub.CallDurationSeconds))
				}
				fmt.Fprintf(out, "Transcript:  %s\n", yesNo(sub.HasTranscript()))
				if sub.Status == store.StatusGraded || sub.Status == store.StatusReviewed {
					fmt.Fprintf(out, "Grade:       %s\n", grading.FormatMultiplier(sub.GradeMultiplier))
				}
				if sub.InstructorNotes != "" {
					fmt.Fprintf(out, "Notes:       %s\n", sub.InstructorNotes)
				}

				fmt.Fprintln(out, "\nQuestions:")
				for i, q := range sub.Questions {
					fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, q.Category, q.Text)
				}

				if fullFlag {
					if sub.HasTranscript() {
						fmt.Fprintf(out, "\nTranscript:\n%s\n", sub.Transcript)
					}
					if sub.GradeComments != "" {
						fmt.Fprintf(out, "\nGrade comments:\n%s\n", sub.GradeComments)
					}
				} else if sub.GradeComments != "" {
					fmt.Fprintf(out, "\nGrade comments: %s\n", truncate(sub.GradeComments, 120))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&fullFlag, "full", false, "Include the full transcript and grade comments")
	return cmd
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var notesFlag string

	cmd := &cobra.Command{
		Use:   "review <session-id>",
		Short: "Mark a graded or excluded submission as reviewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if strings.TrimSpace(notesFlag) != "" {
					if err := st.SetInstructorNotes(cmd.Context(), args[0], notesFlag); err != nil {
						return err
					}
				}
				applied, err := st.MarkReviewed(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !applied {
					return fmt.Errorf("submission %s is not graded or excluded", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "submission %s marked reviewed\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&notesFlag, "notes", "", "Instructor notes to attach")
	return cmd
}

func newToggleExcludedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-excluded <session-id>",
		Short: "Flip a submission between excluded and defense_complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				status, err := st.ToggleExcluded(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "submission %s is now %s\n", args[0], status)
				return nil
			})
		},
	}
}

func knownStatuses() string {
	statuses := store.AllStatuses()
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, string(status))
	}
	return strings.Join(parts, ", ")
}

func formatDurationSeconds(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}
