package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

const (
	MinDailyCap = 1
	MaxDailyCap = 200
)

// QueuePolicy holds the queue sizing constants.
type QueuePolicy struct {
	DefaultDailyCap     int            `mapstructure:"default_daily_cap" validate:"gte=1,lte=200"`
	MaxTopics           int            `mapstructure:"max_topics" validate:"gte=1"`
	QuestionsPerTopic   int            `mapstructure:"questions_per_topic" validate:"gte=1"`
	MaxItems            int            `mapstructure:"max_items" validate:"gte=1"`
	MinutesPerItem      float64        `mapstructure:"minutes_per_item" validate:"gt=0"`
	MaxEstimatedMinutes int            `mapstructure:"max_estimated_minutes" validate:"gte=1"`
	Location            *time.Location `mapstructure:"-"`
}

func DefaultQueuePolicy() QueuePolicy {
	return QueuePolicy{
		DefaultDailyCap:     20,
		MaxTopics:           5,
		QuestionsPerTopic:   2,
		MaxItems:            10,
		MinutesPerItem:      0.5,
		MaxEstimatedMinutes: 5,
		Location:            time.Local,
	}
}

type ReviewItem struct {
	TopicID      uuid.UUID          `json:"topic_id"`
	TopicTitle   string             `json:"topic_title"`
	Category     string             `json:"category"`
	MasteryLevel types.MasteryLevel `json:"mastery_level"`
	QuestionID   uuid.UUID          `json:"question_id"`
	Prompt       string             `json:"prompt"`
	Options      datatypes.JSON     `json:"options,omitempty"`
	VideoID      *uuid.UUID         `json:"video_id,omitempty"`
	VideoTitle   string             `json:"video_title,omitempty"`
	ThumbnailURL string             `json:"thumbnail_url,omitempty"`
	ChannelName  string             `json:"channel_name,omitempty"`
}

type ReviewQueue struct {
	Items            []ReviewItem `json:"items"`
	TotalQuestions   int          `json:"total_questions"`
	EstimatedMinutes int          `json:"estimated_minutes"`
	LimitReached     bool         `json:"limit_reached"`
	Remaining        int          `json:"remaining"`
	ReviewedToday    int          `json:"reviewed_today"`
	DailyCap         int          `json:"daily_cap"`
}

type ReviewQueueService interface {
	Build(ctx context.Context, userID uuid.UUID) (*ReviewQueue, error)
	SetDailyCap(ctx context.Context, userID uuid.UUID, cap int) error
}

type ReviewQueueDeps struct {
	Log       *logger.Logger
	Topics    reviewrepo.TopicRepo
	Questions reviewrepo.QuestionRepo
	Videos    reviewrepo.VideoRepo
	Prefs     reviewrepo.ReviewPrefsRepo
	Metrics   *observability.Metrics
	Policy    QueuePolicy
	Clock     Clock
}

type reviewQueueService struct {
	deps ReviewQueueDeps
	log  *logger.Logger
}

func NewReviewQueueService(deps ReviewQueueDeps) ReviewQueueService {
	def := DefaultQueuePolicy()
	p := &deps.Policy
	if p.DefaultDailyCap <= 0 {
		p.DefaultDailyCap = def.DefaultDailyCap
	}
	if p.MaxTopics <= 0 {
		p.MaxTopics = def.MaxTopics
	}
	if p.QuestionsPerTopic <= 0 {
		p.QuestionsPerTopic = def.QuestionsPerTopic
	}
	if p.MaxItems <= 0 {
		p.MaxItems = def.MaxItems
	}
	if p.MinutesPerItem <= 0 {
		p.MinutesPerItem = def.MinutesPerItem
	}
	if p.MaxEstimatedMinutes <= 0 {
		p.MaxEstimatedMinutes = def.MaxEstimatedMinutes
	}
	if p.Location == nil {
		p.Location = def.Location
	}
	return &reviewQueueService{deps: deps, log: deps.Log.With("service", "ReviewQueueService")}
}

func (s *reviewQueueService) Build(ctx context.Context, userID uuid.UUID) (*ReviewQueue, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	p := s.deps.Policy
	dbc := dbctx.Context{Ctx: ctx}
	now := s.deps.Clock.now()

	dailyCap, err := s.dailyCap(dbc, userID)
	if err != nil {
		return nil, err
	}
	reviewed, err := s.deps.Topics.CountReviewedSince(dbc, userID, startOfDay(now, p.Location))
	if err != nil {
		return nil, fmt.Errorf("count today's reviews: %w", err)
	}
	remaining := dailyCap - int(reviewed)
	if remaining < 0 {
		remaining = 0
	}
	q := &ReviewQueue{
		Items:         []ReviewItem{},
		Remaining:     remaining,
		ReviewedToday: int(reviewed),
		DailyCap:      dailyCap,
	}
	if remaining == 0 {
		q.LimitReached = true
		s.deps.Metrics.ObserveQueueBuild(0, true)
		return q, nil
	}

	topics, err := s.deps.Topics.ListDue(dbc, userID, now, min(p.MaxTopics, remaining))
	if err != nil {
		return nil, fmt.Errorf("list due topics: %w", err)
	}

	type pair struct {
		topic    *types.Topic
		question *types.Question
	}
	pairs := make([]pair, 0, len(topics)*p.QuestionsPerTopic)
	videoIDs := []uuid.UUID{}
	for _, t := range topics {
		questions, err := s.deps.Questions.ListNewestByTopic(dbc, t.ID, p.QuestionsPerTopic)
		if err != nil {
			return nil, fmt.Errorf("list questions for topic %s: %w", t.ID, err)
		}
		for _, qn := range questions {
			pairs = append(pairs, pair{topic: t, question: qn})
			if qn.VideoID != nil {
				videoIDs = append(videoIDs, *qn.VideoID)
			}
		}
	}
	if limit := min(p.MaxItems, remaining); len(pairs) > limit {
		pairs = pairs[:limit]
	}

	videos, err := s.deps.Videos.GetByIDs(dbc, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	for _, pr := range pairs {
		item := ReviewItem{
			TopicID:      pr.topic.ID,
			TopicTitle:   pr.topic.Title,
			Category:     pr.topic.Category,
			MasteryLevel: pr.topic.MasteryLevel,
			QuestionID:   pr.question.ID,
			Prompt:       pr.question.Prompt,
			Options:      pr.question.Options,
			VideoID:      pr.question.VideoID,
		}
		if pr.question.VideoID != nil {
			if v := videos[*pr.question.VideoID]; v != nil {
				item.VideoTitle = v.Title
				item.ThumbnailURL = v.ThumbnailURL
				item.ChannelName = v.ChannelName
			}
		}
		q.Items = append(q.Items, item)
	}
	q.TotalQuestions = len(q.Items)
	q.EstimatedMinutes = EstimateMinutes(q.TotalQuestions, p.MinutesPerItem, p.MaxEstimatedMinutes)
	s.deps.Metrics.ObserveQueueBuild(q.TotalQuestions, false)
	return q, nil
}

func (s *reviewQueueService) SetDailyCap(ctx context.Context, userID uuid.UUID, cap int) error {
	if userID == uuid.Nil {
		return ErrMissingUser
	}
	if cap < MinDailyCap || cap > MaxDailyCap {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidDailyCap, cap, MinDailyCap, MaxDailyCap)
	}
	if err := s.deps.Prefs.UpsertDailyCap(dbctx.Context{Ctx: ctx}, userID, cap); err != nil {
		return fmt.Errorf("save daily cap: %w", err)
	}
	return nil
}

func (s *reviewQueueService) dailyCap(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	if s.deps.Prefs == nil {
		return s.deps.Policy.DefaultDailyCap, nil
	}
	prefs, err := s.deps.Prefs.Get(dbc, userID)
	if err != nil {
		return 0, fmt.Errorf("load review prefs: %w", err)
	}
	if prefs == nil || prefs.MaxDailyReviews <= 0 {
		return s.deps.Policy.DefaultDailyCap, nil
	}
	return prefs.MaxDailyReviews, nil
}

// EstimateMinutes is ceil(n * perItem), capped at ceiling.
func EstimateMinutes(n int, perItem float64, ceiling int) int {
	if n <= 0 {
		return 0
	}
	est := int(math.Ceil(float64(n) * perItem))
	return min(est, ceiling)
}

// startOfDay is local midnight of now's calendar day in loc.
func startOfDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
