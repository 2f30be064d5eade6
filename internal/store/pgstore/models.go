package pgstore

import (
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/datatypes"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

type learnerRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}

func (learnerRow) TableName() string { return "learners" }

type itemRow struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	OwnerID     int64          `gorm:"not null;index"`
	Type        string         `gorm:"not null"`
	Topic       string         `gorm:"not null;default:''"`
	Question    string         `gorm:"not null"`
	Choices     datatypes.JSON `gorm:"type:jsonb"`
	AnswerKey   datatypes.JSON `gorm:"type:jsonb"`
	Explanation string         `gorm:"not null;default:''"`
	CreatedAt   time.Time      `gorm:"not null"`
}

func (itemRow) TableName() string { return "items" }

type stateRow struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement"`
	LearnerID             int64      `gorm:"not null;uniqueIndex:idx_state_pair"`
	ItemID                int64      `gorm:"not null;uniqueIndex:idx_state_pair"`
	Gate                  string     `gorm:"not null;index"`
	NextReviewDate        *time.Time `gorm:"type:date;index"`
	AttemptCount          int        `gorm:"not null;default:0"`
	TodaySnapshotDate     *time.Time `gorm:"type:date;index"`
	TodaySnapshotGate     *string
	TodayFirstAttemptDate *time.Time `gorm:"type:date"`
	CreatedAt             time.Time  `gorm:"not null"`
	UpdatedAt             time.Time  `gorm:"not null"`
}

func (stateRow) TableName() string { return "review_states" }

type attemptRow struct {
	ID         string         `gorm:"primaryKey"`
	LearnerID  int64          `gorm:"not null;index:idx_attempt_learner_time"`
	ItemID     int64          `gorm:"not null;index"`
	Answer     string         `gorm:"not null"`
	Correct    bool           `gorm:"not null"`
	FirstOfDay bool           `gorm:"not null"`
	Feedback   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_attempt_learner_time"`
}

func (attemptRow) TableName() string { return "attempts" }

type snapshotRunRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Date        time.Time `gorm:"type:date;not null"`
	RowsUpdated int64     `gorm:"not null"`
	RanAt       time.Time `gorm:"not null"`
}

func (snapshotRunRow) TableName() string { return "snapshot_runs" }

type llmCallRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt    time.Time `gorm:"not null;index"`
	Purpose      string    `gorm:"not null;index"`
	Model        string    `gorm:"not null"`
	InputTokens  int       `gorm:"not null"`
	OutputTokens int       `gorm:"not null"`
	LatencyMs    int64     `gorm:"not null"`
	Success      bool      `gorm:"not null"`
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

func (llmCallRow) TableName() string { return "llm_calls" }

// dateVal maps a civil date to UTC midnight; the zero date maps to nil.
func dateVal(d civil.Date) *time.Time {
	if !d.IsValid() {
		return nil
	}
	t := d.In(time.UTC)
	return &t
}

func civilOf(t *time.Time) civil.Date {
	if t == nil {
		return civil.Date{}
	}
	return civil.DateOf(*t)
}

func gateVal(g review.Gate) *string {
	if g == "" {
		return nil
	}
	s := string(g)
	return &s
}

func (r stateRow) toState() (review.State, error) {
	g, err := review.ParseGate(r.Gate)
	if err != nil {
		return review.State{}, err
	}
	st := review.State{
		ID:                    r.ID,
		LearnerID:             r.LearnerID,
		ItemID:                r.ItemID,
		Gate:                  g,
		NextReviewDate:        civilOf(r.NextReviewDate),
		AttemptCount:          r.AttemptCount,
		TodaySnapshotDate:     civilOf(r.TodaySnapshotDate),
		TodayFirstAttemptDate: civilOf(r.TodayFirstAttemptDate),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
	if r.TodaySnapshotGate != nil {
		st.TodaySnapshotGate = review.Gate(*r.TodaySnapshotGate)
	}
	return st, nil
}

func fromState(st review.State) stateRow {
	return stateRow{
		ID:                    st.ID,
		LearnerID:             st.LearnerID,
		ItemID:                st.ItemID,
		Gate:                  string(st.Gate),
		NextReviewDate:        dateVal(st.NextReviewDate),
		AttemptCount:          st.AttemptCount,
		TodaySnapshotDate:     dateVal(st.TodaySnapshotDate),
		TodaySnapshotGate:     gateVal(st.TodaySnapshotGate),
		TodayFirstAttemptDate: dateVal(st.TodayFirstAttemptDate),
	}
}
