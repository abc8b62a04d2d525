package domain

import "context"

// Balance is a member's points summary.
type Balance struct {
	Balance        int `json:"balance"`
	LifetimeEarned int `json:"lifetime_earned"`
	LifetimeSpent  int `json:"lifetime_spent"`
}

// LedgerEntry is one row of a member's points history.
type LedgerEntry struct {
	Points    int    `json:"points"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

// Task is a community task that pays points on approval.
type Task struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Points    int    `json:"points"`
	Portfolio string `json:"portfolio"`
	Status    string `json:"status"`
}

// Reward is a redeemable item on the rewards menu.
type Reward struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	CostPoints int    `json:"cost_points"`
}

// Redemption is a pending or approved reward request.
type Redemption struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Booking is a coworking-day booking.
type Booking struct {
	ID         string `json:"id,omitempty"`
	Date       string `json:"date"`
	PointsCost int    `json:"points_cost"`
}

// Cancellation reports the outcome of a booking cancellation.
type Cancellation struct {
	RefundAmount int `json:"refund_amount"`
}

// CoworkingDay is one day of coworking availability.
type CoworkingDay struct {
	Date      string `json:"date"`
	SpotsLeft int    `json:"spots_left"`
}

// RateCardEntry maps an activity description to a point value.
// Fetched fresh per resolution attempt; prices may change between calls.
type RateCardEntry struct {
	Alias       string `json:"alias"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// AdminAllowance is an admin's weekly award budget for the current ISO week.
// Always recomputed from the backend; never cached across award calls.
type AdminAllowance struct {
	Allowance int `json:"allowance"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// Award reports the outcome of a points award.
type Award struct {
	NewBalance int `json:"new_balance"`
}

// CreateTaskRequest carries the fields for an admin task creation.
type CreateTaskRequest struct {
	AdminID     string
	Title       string
	Points      int
	Description string
	Portfolio   string
	DueDate     string
	AssignedTo  string
	ChannelID   string
	ThreadID    string
}

// PointsAPI is the backend domain API. One method per dispatchable action.
// Implementations surface 400/403/404 responses as *points.APIError so the
// dispatcher can map each to a distinct user-facing message class.
type PointsAPI interface {
	// Member endpoints.
	Balance(ctx context.Context, userID string) (*Balance, error)
	History(ctx context.Context, userID string, limit int) ([]LedgerEntry, error)
	ListTasks(ctx context.Context, status string) ([]Task, error)
	GetTask(ctx context.Context, taskID int) (*Task, error)
	ClaimTask(ctx context.Context, taskID int, userID string) (*Task, error)
	SubmitTask(ctx context.Context, taskID int, userID, text, url string) (*Task, error)
	CheckCoworking(ctx context.Context, date string, days int) ([]CoworkingDay, error)
	BookCoworking(ctx context.Context, userID, date, channelID string) (*Booking, error)
	CancelCoworking(ctx context.Context, userID, date string) (*Cancellation, error)
	MyBookings(ctx context.Context, userID string) ([]Booking, error)
	ListRewards(ctx context.Context, userID string) ([]Reward, error)
	RequestReward(ctx context.Context, userID, code string, quantity int, notes, channelID, threadID string) (*Redemption, error)

	// Admin endpoints.
	RateCard(ctx context.Context) ([]RateCardEntry, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	AdminAllowance(ctx context.Context, userID string) (*AdminAllowance, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error)
	ApproveTask(ctx context.Context, taskID int, adminID string) (*Task, error)
	RejectTask(ctx context.Context, taskID int, adminID, reason string) (*Task, error)
	AwardTask(ctx context.Context, taskID int, adminID, targetID string) (*Task, error)
	AwardPoints(ctx context.Context, adminID, targetID string, points int, reason string) (*Award, error)
	SystemAwardPoints(ctx context.Context, adminID, targetID string, points int, reason string) (*Award, error)

	// Channel activity endpoints (first-post tracking).
	HasPostedInChannel(ctx context.Context, userID, channelID string) (bool, error)
	RecordChannelPost(ctx context.Context, userID, channelID string) error
}
