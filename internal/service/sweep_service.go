package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-backend/internal/models"
)

// sweepBatchSize — сколько просроченных ворклогов обрабатывается за проход.
const sweepBatchSize = 500

// SweepStats — итоги одного прохода сверки.
type SweepStats struct {
	Released int
	Refunded int
	Skipped  int
	Failed   int
}

// SweepService — плановая сверка: освобождает холды отклонённых ворклогов,
// окно оспаривания которых истекло без спора.
type SweepService struct {
	worklogs WorklogStore
	disputes DisputeStore
	escrow   EscrowStore
	log      *logrus.Logger

	now func() time.Time
}

func NewSweepService(worklogs WorklogStore, disputes DisputeStore, escrow EscrowStore, log *logrus.Logger) *SweepService {
	return &SweepService{
		worklogs: worklogs,
		disputes: disputes,
		escrow:   escrow,
		log:      log,
		now:      time.Now,
	}
}

// ReleaseLapsedHolds выполняет один проход сверки. Каждый ворклог
// обрабатывается независимо: ошибка по одному не прерывает проход.
// Повторный запуск безопасен — уже освобождённые холды не совпадают с
// guard-условием освобождения и пропускаются.
func (s *SweepService) ReleaseLapsedHolds(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	lapsed, err := s.worklogs.ListLapsedRejected(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return stats, err
	}

	for i := range lapsed {
		wl := &lapsed[i]

		// Быстрая проверка до транзакции; решающая перепроверка
		// встроена в сам UPDATE освобождения.
		active, err := s.disputes.GetActiveByScopeKey(ctx, models.WorklogScope(wl.ID).Key(wl.ContractID))
		if err != nil {
			stats.Failed++
			s.log.WithError(err).WithField("worklog_id", wl.WorklogID).
				Warn("Сверка: не удалось проверить активный спор")
			continue
		}
		if active != nil {
			stats.Skipped++
			continue
		}

		released, refunded, err := s.escrow.ReleaseLapsedHold(ctx, wl.ID)
		if err != nil {
			stats.Failed++
			s.log.WithError(err).WithField("worklog_id", wl.WorklogID).
				Warn("Сверка: не удалось освободить холд")
			continue
		}
		if released == nil {
			// Спор успел открыться или холд уже освобождён.
			stats.Skipped++
			continue
		}
		stats.Released++
		if refunded {
			stats.Refunded++
		}
	}

	s.log.WithFields(logrus.Fields{
		"released": stats.Released,
		"refunded": stats.Refunded,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	}).Info("Сверка просроченных холдов завершена")

	return stats, nil
}
