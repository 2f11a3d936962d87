package domain

import (
	"github.com/yungbote/reviewgate-backend/internal/domain/learning"
	"github.com/yungbote/reviewgate-backend/internal/domain/review"
	"github.com/yungbote/reviewgate-backend/internal/domain/usage"
)

type (
	MasteryLevel    = review.MasteryLevel
	Topic           = review.Topic
	Question        = review.Question
	Video           = review.Video
	LearningSession = review.LearningSession
	ReviewEvent     = review.ReviewEvent
	UserReviewPrefs = review.UserReviewPrefs

	LearningModel      = learning.LearningModel
	LearningPattern    = learning.LearningPattern
	SessionPatternData = learning.SessionPatternData

	UsageLedger = usage.UsageLedger
)

const (
	MasteryNew        = review.MasteryNew
	MasteryDeveloping = review.MasteryDeveloping
	MasteryFamiliar   = review.MasteryFamiliar
	MasteryMastered   = review.MasteryMastered

	SessionStatusCompleted = review.SessionStatusCompleted

	PatternTypeSessionTime = learning.PatternTypeSessionTime
)

// Models lists every table owned or read by this service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Video{},
		&LearningSession{},
		&Topic{},
		&Question{},
		&ReviewEvent{},
		&UserReviewPrefs{},
		&LearningModel{},
		&LearningPattern{},
		&UsageLedger{},
	}
}
