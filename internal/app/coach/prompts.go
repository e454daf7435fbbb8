package coach

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/learnquest/learnquest/internal/domain"
)

const analyzeSystemPrompt = `You are an empathetic and insightful learning coach for a software engineering student.
Your role is to:
1. Analyze study patterns and provide constructive feedback
2. Detect potential issues like burnout, irregular study habits, or overload
3. Suggest actionable improvements in a friendly, motivational tone
4. Provide personalized recommendations based on their learning journey

Keep responses concise (2-3 paragraphs), encouraging, and actionable.`

const suggestionSystemPrompt = `You are a supportive daily study coach. Provide brief, actionable daily study suggestions
based on the student's current progress and context. Keep responses to 2-3 sentences maximum.`

func analyzePrompt(context string) string {
	return "Analyze this student's learning journey and provide personalized coaching:\n\n" +
		context + `
Please provide:
1. Overall assessment of their progress
2. Any concerning patterns (burnout risk, irregular habits, etc.)
3. 2-3 specific actionable recommendations
4. Encouraging message to keep them motivated

Keep it friendly, concise, and actionable.`
}

func suggestionPrompt(context string) string {
	return "Based on this learning journey, what should the student focus on today?\n\n" +
		context + "\nProvide a brief, specific suggestion (2-3 sentences)."
}

// BuildContext renders the learner's state as prompt text. patterns may be
// nil when only the profile and plan matter.
func BuildContext(req domain.CoachRequest, patterns *domain.Patterns, weak []domain.WeakSubject) string {
	total, completed := 0, 0
	for _, tasks := range req.LearningPlan {
		total += len(tasks)
		for i := range tasks {
			if tasks[i].IsCompleted() {
				completed++
			}
		}
	}

	level := req.UserData.CurrentLevel
	if level < 1 {
		level = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Student Profile:\n")
	fmt.Fprintf(&b, "- Current Level: %d\n", level)
	fmt.Fprintf(&b, "- Total XP: %d\n", req.UserData.CurrentXP)
	fmt.Fprintf(&b, "- Learning Plan Progress: %d/%d tasks completed\n\n", completed, total)
	fmt.Fprintf(&b, "Recent Activity (last %d sessions):\n", len(req.Logs))

	if patterns != nil {
		fmt.Fprintf(&b, "- Average study time: %s minutes per session\n", num(patterns.AvgTimePerSession))
		fmt.Fprintf(&b, "- Average difficulty: %s/5\n", num(patterns.AvgDifficulty))
		fmt.Fprintf(&b, "- Consistency score: %s%%\n", num(patterns.ConsistencyScore))
		fmt.Fprintf(&b, "- Total study time: %d minutes\n", patterns.TotalStudyTime)
		if patterns.SkipDetection {
			b.WriteString("- ⚠️ Pattern detected: Irregular study schedule with gaps\n")
		}
		if patterns.BurnoutRisk {
			b.WriteString("- ⚠️ Warning: Potential burnout risk (high intensity sessions)\n")
		}
	}

	if len(weak) > 0 {
		b.WriteString("\nAreas needing attention:\n")
		for _, ws := range weak {
			fmt.Fprintf(&b, "- %s: %s%% completed\n", ws.Subject, num(ws.CompletionRate))
		}
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
