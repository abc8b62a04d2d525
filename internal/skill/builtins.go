package skill

import "roobot/internal/domain"

// RegisterBuiltins loads the built-in skills. These carry native handlers;
// YAML-defined skills without a handler fall back to the model-driven path.
func (r *Registry) RegisterBuiltins() {
	builtins := []domain.Skill{
		{
			Name:        "mlai-points",
			Description: "Community points: balances, tasks, rewards, coworking bookings, and admin awards",
			BuiltIn:     true,
			Handler:     "mlai-points",
			TriggerKeywords: []string{
				"points", "balance", "task", "tasks", "reward", "rewards",
				"coworking", "award", "claim", "redeem", "leaderboard",
			},
			Parameters: []domain.ParameterSpec{
				{Name: "action", Description: "The points action the user wants, e.g. balance, list_tasks, award_points"},
				{Name: "task_id", Description: "Numeric ID of a task being claimed, submitted, approved or rejected"},
				{Name: "target_user", Description: "Slack user the action applies to (mention or ID)"},
				{Name: "points", Description: "Number of points to award"},
				{Name: "reason", Description: "Free-text reason for an award"},
				{Name: "title", Description: "Title for a new task"},
				{Name: "date", Description: "ISO date for a coworking booking, e.g. 2026-09-01"},
				{Name: "reward_code", Description: "Code of a reward being requested"},
				{Name: "submission_text", Description: "Description of completed work for a task submission"},
			},
			Instructions: "Help members check balances, find tasks to earn points, redeem rewards " +
				"and book coworking days. Admins can create tasks, approve or reject submissions " +
				"and award points within their weekly allowance. Point deductions are never allowed. " +
				"If an action needs missing details, ask a short follow-up question.",
		},
		{
			Name:        "content-factory",
			Description: "Generate and publish SEO articles through the content pipeline",
			BuiltIn:     true,
			Handler:     "content-factory",
			TriggerKeywords: []string{
				"article", "blog post", "content factory", "write a post", "generate content",
			},
			Parameters: []domain.ParameterSpec{
				{Name: "topic", Description: "The article topic (required)", Required: true},
				{Name: "target_keyword", Description: "Primary SEO keyword to target"},
				{Name: "domain", Description: "Site the article is for", Default: "mlai.au"},
				{Name: "context", Description: "Extra context or angle for the writer"},
			},
			Instructions: "Start an article generation job for the requested topic, keep the " +
				"requester posted on progress in the thread, and publish the article when the " +
				"pipeline finishes, sharing the preview and PR links.",
		},
	}

	for _, s := range builtins {
		r.Register(s)
	}
}
