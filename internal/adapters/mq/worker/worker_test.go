package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/velorank/internal/adapters/mq/queue"
	"github.com/okian/velorank/internal/adapters/mq/worker"
	"github.com/okian/velorank/internal/domain/model"
	logging "github.com/okian/velorank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type mockProcessor struct {
	mu      sync.Mutex
	seen    []string
	failFor map[string]error
}

func (m *mockProcessor) ProcessImport(_ context.Context, b model.ImportBatch) (model.ImportReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, b.ImportID)
	if err := m.failFor[b.ImportID]; err != nil {
		return model.ImportReport{}, err
	}
	return model.ImportReport{ImportID: b.ImportID, RacesImported: len(b.Races)}, nil
}

func (m *mockProcessor) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	_ = logging.Init()

	Convey("Given a worker reading from a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		proc := &mockProcessor{failFor: map[string]error{"bad": errors.New("boom")}}

		var mu sync.Mutex
		var reports []model.ImportReport
		w := worker.NewInMemoryWorker(q, proc,
			worker.WithName("test-worker"),
			worker.WithReportHandler(func(r model.ImportReport) {
				mu.Lock()
				reports = append(reports, r)
				mu.Unlock()
			}),
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		Convey("When good and failing batches are queued", func() {
			So(q.Enqueue(ctx, model.ImportBatch{ImportID: "bad"}), ShouldBeNil)
			So(q.Enqueue(ctx, model.ImportBatch{ImportID: "ok", Races: []model.ImportRace{{Name: "A"}}}), ShouldBeNil)

			Convey("Then both are processed and only the good one is reported", func() {
				So(waitFor(func() bool { return proc.count() == 2 }), ShouldBeTrue)
				So(waitFor(func() bool { mu.Lock(); defer mu.Unlock(); return len(reports) == 1 }), ShouldBeTrue)
				mu.Lock()
				So(reports[0].ImportID, ShouldEqual, "ok")
				So(reports[0].RacesImported, ShouldEqual, 1)
				mu.Unlock()
				So(w.Shutdown(context.Background()), ShouldBeNil)
			})
		})

		Convey("When shut down while idle", func() {
			So(w.Shutdown(context.Background()), ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	_ = logging.Init()

	Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		proc := &mockProcessor{}
		pool := worker.NewPool(3, q, proc)
		So(pool.Size(), ShouldEqual, 3)

		ctx := context.Background()
		pool.Start(ctx)

		Convey("When twenty batches are queued", func() {
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, model.ImportBatch{ImportID: string(rune('a' + i))}), ShouldBeNil)
			}

			Convey("Then every batch is processed once and shutdown closes the queue", func() {
				So(waitFor(func() bool { return proc.count() == 20 }), ShouldBeTrue)
				So(pool.Shutdown(ctx), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
				So(proc.count(), ShouldEqual, 20)
			})
		})
	})

	Convey("Given a pool with a non-positive size", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &mockProcessor{})
		So(pool.Size(), ShouldEqual, 2)
	})
}
