package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/songdl/internal/formatter"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/repositories"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints recorded batches, the attempts of one batch, or strategy success rates.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := openDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	attempts := repositories.NewAttemptRepository(db)
	batches := repositories.NewBatchRepository(db)

	switch {
	case cmd.String("batch") != "":
		return r.showBatch(batches, attempts, cmd.String("batch"), format)
	case cmd.String("title") != "":
		list, err := attempts.ListByItem(cmd.String("title"), cmd.String("artist"))
		if err != nil {
			return err
		}
		return r.writeAttempts(list, format)
	case cmd.Bool("recent"):
		list, err := attempts.Recent(cmd.Int("limit"))
		if err != nil {
			return err
		}
		return r.writeAttempts(list, format)
	case cmd.Bool("stats"):
		stats, err := attempts.StrategyStats()
		if err != nil {
			return err
		}
		data, err := formatter.RenderStats(stats, format)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	default:
		return r.listBatches(batches, attempts, cmd.Int("limit"), format)
	}
}

func (r *Runner) listBatches(batches *repositories.BatchRepository, attempts *repositories.AttemptRepository, limit int, f formatter.Format) error {
	runs, err := batches.List(limit)
	if err != nil {
		return err
	}

	data, err := formatter.RenderBatches(runs, f)
	if err != nil {
		return err
	}
	if err := r.writeBytes(data); err != nil {
		return err
	}
	if f != formatter.Text {
		return nil
	}

	summaries, err := attempts.Summaries(limit)
	if err != nil {
		return err
	}
	if len(summaries) > 0 {
		r.writePlainln("Attempt log:")
		return r.writeBytes(formatter.AttemptSummariesToText(summaries))
	}
	return nil
}

func (r *Runner) showBatch(batches *repositories.BatchRepository, attempts *repositories.AttemptRepository, id string, f formatter.Format) error {
	run, err := batches.Get(id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	list, err := attempts.ListByBatch(id)
	if err != nil {
		return err
	}
	if run == nil && len(list) == 0 {
		return fmt.Errorf("%w: batch %s", shared.ErrNotFound, id)
	}

	switch f {
	case formatter.JSON:
		return r.writeJSON(struct {
			Batch    *models.BatchRun  `json:"batch,omitempty"`
			Attempts []*models.Attempt `json:"attempts"`
		}{run, list}, true)
	case formatter.CSV:
		return r.writeAttempts(list, f)
	}

	if run != nil {
		r.writePlainHeader("Batch Summary")
		r.writeBytes(formatter.SummaryToText(run))
		r.writePlain("\n")
	}
	return r.writeBytes(formatter.AttemptsToText(list))
}

func (r *Runner) writeAttempts(list []*models.Attempt, f formatter.Format) error {
	data, err := formatter.RenderAttempts(list, f)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}
