package sync

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// Job はOrchestratorをcronスケジュールで定期実行する。
// 前回のランが終わっていない場合、そのティックはスキップする。
type Job struct {
	orchestrator *Orchestrator
	opts         RunOptions
	logger       *slog.Logger
	cron         *cron.Cron
	running      atomic.Bool
}

// NewJob は新しいJobを生成する。
func NewJob(orchestrator *Orchestrator, opts RunOptions, logger *slog.Logger) *Job {
	return &Job{
		orchestrator: orchestrator,
		opts:         opts,
		logger:       logger,
	}
}

// Start は指定スケジュール（cron式または@daily等のディスクリプタ）で
// 定期実行を開始する。コンテキストのキャンセルで停止する。
func (j *Job) Start(ctx context.Context, schedule string) error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(schedule, func() {
		j.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	j.logger.Info("同期ワーカーを開始しました",
		slog.String("schedule", schedule),
	)
	j.cron.Start()

	<-ctx.Done()
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.logger.Info("同期ワーカーを停止しました")
	return nil
}

// runOnce は1回の同期ランを実行する。多重実行は抑止する。
func (j *Job) runOnce(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("前回の同期ランが実行中のためスキップします")
		return
	}
	defer j.running.Store(false)

	if err := j.orchestrator.Run(ctx, j.opts); err != nil {
		j.logger.Error("同期ランが中断されました",
			slog.String("error", err.Error()),
		)
	}
}
