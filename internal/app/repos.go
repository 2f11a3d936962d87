package app

import (
	"gorm.io/gorm"

	learningrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/learning"
	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	usagerepo "github.com/yungbote/reviewgate-backend/internal/data/repos/usage"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type Repos struct {
	Topic       reviewrepo.TopicRepo
	ReviewEvent reviewrepo.ReviewEventRepo
	Question    reviewrepo.QuestionRepo
	Video       reviewrepo.VideoRepo
	ReviewPrefs reviewrepo.ReviewPrefsRepo
	Session     reviewrepo.LearningSessionRepo
	Model       learningrepo.LearningModelRepo
	Pattern     learningrepo.LearningPatternRepo
	UsageLedger usagerepo.UsageLedgerRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Topic:       reviewrepo.NewTopicRepo(db, log),
		ReviewEvent: reviewrepo.NewReviewEventRepo(db, log),
		Question:    reviewrepo.NewQuestionRepo(db, log),
		Video:       reviewrepo.NewVideoRepo(db, log),
		ReviewPrefs: reviewrepo.NewReviewPrefsRepo(db, log),
		Session:     reviewrepo.NewLearningSessionRepo(db, log),
		Model:       learningrepo.NewLearningModelRepo(db, log),
		Pattern:     learningrepo.NewLearningPatternRepo(db, log),
		UsageLedger: usagerepo.NewUsageLedgerRepo(db, log),
	}
}
