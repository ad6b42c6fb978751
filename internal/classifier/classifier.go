// Package classifier переводит свободный текст водителя в намерение
// (model.Intent) с помощью языковой модели. Основной бэкенд бесплатный,
// с суточным лимитом; при его исчерпании или сбое используется резервный.
package classifier

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/model"
)

// Backend одна языковая модель: принимает промпт, возвращает сырой текст ответа
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request входные данные классификации
type Request struct {
	Text       string
	Today      time.Time
	UsageCount int // расход бесплатного лимита за сегодня
}

// Result итог классификации
type Result struct {
	Intent     model.Intent
	Confidence float64
	Backend    string
	// Primary ответ дал основной (бесплатный) бэкенд, расход лимита нужно учесть
	Primary bool
}

type Classifier struct {
	primary   Backend
	secondary Backend
	threshold int
	logger    *logrus.Logger
}

// NewClassifier создает классификатор. Любой из бэкендов может быть nil,
// если он не настроен.
func NewClassifier(primary, secondary Backend, threshold int, logger *logrus.Logger) *Classifier {
	return &Classifier{
		primary:   primary,
		secondary: secondary,
		threshold: threshold,
		logger:    logger,
	}
}

// Classify никогда не возвращает ошибку: если оба бэкенда не справились,
// результат Unknown с уверенностью 0.
func (c *Classifier) Classify(ctx context.Context, req Request) Result {
	prompt := BuildPrompt(req.Text, req.Today)

	if c.primary != nil {
		if req.UsageCount < c.threshold {
			res, err := c.run(ctx, c.primary, prompt, req.Today)
			if err == nil {
				res.Primary = true
				return res
			}
			c.logger.WithError(err).WithField("backend", c.primary.Name()).
				Warn("Основной классификатор не ответил, переключаемся на резервный")
		} else {
			c.logger.WithFields(logrus.Fields{
				"usage":     req.UsageCount,
				"threshold": c.threshold,
			}).Info("Суточный лимит основного классификатора исчерпан")
		}
	}

	if c.secondary != nil {
		res, err := c.run(ctx, c.secondary, prompt, req.Today)
		if err == nil {
			return res
		}
		c.logger.WithError(err).WithField("backend", c.secondary.Name()).
			Error("Резервный классификатор не ответил")
	}

	return Result{Intent: model.UnknownIntent{}, Confidence: 0, Backend: "none"}
}

func (c *Classifier) run(ctx context.Context, b Backend, prompt string, today time.Time) (Result, error) {
	raw, err := b.Complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	intent, confidence, err := Decode(raw, today)
	if err != nil {
		return Result{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"backend":    b.Name(),
		"intent":     intent.Name(),
		"confidence": confidence,
	}).Info("Намерение распознано")

	return Result{Intent: intent, Confidence: confidence, Backend: b.Name()}, nil
}
