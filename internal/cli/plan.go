package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
)

func init() {
	planListCmd.Flags().IntVar(&planWeek, "week", 0, "Only show this week")

	planAddCmd.Flags().IntVar(&planNew.Week, "week", 0, "Plan week (1-based)")
	planAddCmd.Flags().StringVar(&planNew.Topic, "topic", "", "Topic to study")
	planAddCmd.Flags().StringVar(&planNew.SubjectType, "subject", "", "Subject, e.g. Java, DSA, CS")
	planAddCmd.Flags().Int64Var(&planNew.XPReward, "xp", 0, "XP reward on completion (default 100)")
	_ = planAddCmd.MarkFlagRequired("week")
	_ = planAddCmd.MarkFlagRequired("topic")
	_ = planAddCmd.MarkFlagRequired("subject")

	planEditCmd.Flags().StringVar(&planEdit.Topic, "topic", "", "New topic")
	planEditCmd.Flags().Int64Var(&planEdit.XPReward, "xp", 0, "New XP reward")

	planCmd.AddCommand(planListCmd, planAddCmd, planStatusCmd, planEditCmd, planRmCmd)
	rootCmd.AddCommand(planCmd)
}

var (
	planWeek int
	planNew  engagement.NewTask
	planEdit engagement.TaskEdit
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage the weekly learning plan",
}

var planListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List plan tasks by week",
	Args:    cobra.NoArgs,
	RunE:    runPlanList,
}

var planAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a task to the plan",
	Args:  cobra.NoArgs,
	RunE:  runPlanAdd,
}

var planStatusCmd = &cobra.Command{
	Use:     "status <task-id> <not-started|in-progress|completed>",
	Short:   "Move a task to a new status; completing it pays its XP once",
	Example: "  learnquest plan status 6f1c… completed",
	Args:    cobra.ExactArgs(2),
	RunE:    runPlanStatus,
}

var planEditCmd = &cobra.Command{
	Use:   "edit <task-id>",
	Short: "Change a task's topic or XP reward",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanEdit,
}

var planRmCmd = &cobra.Command{
	Use:     "rm <task-id>",
	Aliases: []string{"delete"},
	Short:   "Remove a task from the plan",
	Args:    cobra.ExactArgs(1),
	RunE:    runPlanRm,
}

func runPlanList(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	plan, err := d.Engagement.LearningPlan(cmd.Context(), uid)
	if err != nil {
		return err
	}
	if planWeek > 0 {
		plan = map[int][]domain.PlanTask{planWeek: plan[planWeek]}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, plan)
	}

	weeks := engagement.Weeks(plan)
	if len(weeks) == 0 || (planWeek > 0 && len(plan[planWeek]) == 0) {
		fmt.Fprintln(out, "No tasks. Run 'learnquest plan add' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, week := range weeks {
		tasks := plan[week]
		if len(tasks) == 0 {
			continue
		}
		stats := engagement.Completion(tasks)
		fmt.Fprintf(w, "%s  %s\n",
			paint(titleStyle, fmt.Sprintf("Week %d", week)),
			paint(mutedStyle, fmt.Sprintf("%d/%d done", stats.Completed, stats.Total)))
		for _, t := range tasks {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%d XP\t%s\n",
				statusMark(t.Status), t.Topic, t.SubjectType, t.XPReward, paint(mutedStyle, t.ID))
		}
	}
	return w.Flush()
}

func runPlanAdd(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	task, err := d.Engagement.AddTask(cmd.Context(), uid, planNew)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), task)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %q to week %d (%d XP) as %s\n", task.Topic, task.Week, task.XPReward, task.ID)
	return nil
}

func runPlanStatus(cmd *cobra.Command, args []string) error {
	status, err := parseStatus(args[1])
	if err != nil {
		return err
	}

	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	upd, err := d.Engagement.UpdateTaskStatus(cmd.Context(), uid, args[0], status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		resp := map[string]any{"data": upd.Task}
		if upd.Completed {
			resp["xpEarned"] = upd.XPEarned
			resp["newXP"] = upd.NewXP
			resp["newLevel"] = upd.NewLevel
		}
		return printJSON(out, resp)
	}
	fmt.Fprintf(out, "%s %q is now %s\n", statusMark(upd.Task.Status), upd.Task.Topic, upd.Task.Status)
	if upd.Completed {
		if upd.XPEarned > 0 {
			fmt.Fprintf(out, "  +%d XP  →  %d XP, level %d\n", upd.XPEarned, upd.NewXP, upd.NewLevel)
		} else {
			fmt.Fprintln(out, paint(mutedStyle, "  XP for this task was already awarded"))
		}
	}
	return nil
}

func runPlanEdit(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	edit := planEdit
	edit.ID = args[0]
	task, err := d.Engagement.EditTask(cmd.Context(), uid, edit)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), task)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %q, %d XP\n", task.ID, task.Topic, task.XPReward)
	return nil
}

func runPlanRm(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Engagement.DeleteTask(cmd.Context(), uid, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

// parseStatus accepts the stored spelling or a short CLI form.
func parseStatus(s string) (domain.TaskStatus, error) {
	if st := domain.TaskStatus(s); st.Valid() {
		return st, nil
	}
	switch strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(strings.TrimSpace(s))) {
	case "not-started", "todo":
		return domain.TaskNotStarted, nil
	case "in-progress", "doing", "started":
		return domain.TaskInProgress, nil
	case "completed", "done":
		return domain.TaskCompleted, nil
	}
	return "", domain.Validation("status", "unknown status %q (want not-started, in-progress or completed)", s)
}

func statusMark(s domain.TaskStatus) string {
	switch s {
	case domain.TaskCompleted:
		return paint(successStyle, "✓")
	case domain.TaskInProgress:
		return paint(warningStyle, "◐")
	default:
		return "○"
	}
}
