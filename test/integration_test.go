package test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	boardcache "rolling-paper/cache"
	"rolling-paper/domain"
	"rolling-paper/repositories"
	"rolling-paper/runtime"
	"rolling-paper/runtime/workers"
	"rolling-paper/services"
	"rolling-paper/sink"
)

// Full-stack scenario: a created message flows through the badger store, the
// transcript sink and the change notifier, and ends up pushed to a live
// subscriber by the fanout worker.
func Test_Scenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := require.New(t)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repositories.NewBadgerStore(db, log)
	notifier := runtime.NewLocalNotifier(16, log)

	transcriptSink, err := sink.NewTranscriptSink(store, t.TempDir(), log)
	req.NoError(err)

	service := services.NewBoardService(store, boardcache.Disabled{}, notifier, domain.NewGroupSet("ESD,FDM"), log).
		AddSinks(transcriptSink)

	broadcaster := workers.NewBroadcaster(4, log)
	supervisor := workers.NewSupervisor(log, 200*time.Millisecond).
		Add(workers.NewFanoutWorker(log, notifier, service, broadcaster))
	go supervisor.Run(ctx)
	t.Cleanup(supervisor.Stop)

	frames := broadcaster.Subscribe("integration")
	t.Cleanup(func() { broadcaster.Unsubscribe("integration") })

	// When a message is posted
	created, err := service.Create(ctx, domain.CreateRequest{
		Author:   "Alice",
		Group:    "ESD",
		Content:  "this message will self destruct in 5 seconds",
		Password: "secret",
	})
	req.NoError(err)

	// Then the fanout worker pushes the refreshed list to the subscriber
	select {
	case payload := <-frames:
		var listed []domain.Message
		req.NoError(json.Unmarshal(payload, &listed))
		req.Len(listed, 1)
		req.Equal(created.ID, listed[0].ID)
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: change never reached the live subscriber")
	}

	// And the transcript sink has projected the group file
	transcripts, err := service.Transcripts(ctx)
	req.NoError(err)
	req.Contains(transcripts[domain.Group("ESD")], "Alice")
}
