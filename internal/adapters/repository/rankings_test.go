package repository_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/okian/velorank/internal/adapters/repository"
	"github.com/okian/velorank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func seeded() repository.Option {
	r := rand.New(rand.NewPCG(1, 2))
	return repository.WithPrioritySource(r.Uint64)
}

func TestRankings(t *testing.T) {
	ctx := context.Background()

	Convey("Given a rankings index", t, func() {
		idx := repository.NewRankings(seeded())

		Convey("When athletes are upserted", func() {
			idx.Upsert(ctx, "c", 1600)
			idx.Upsert(ctx, "a", 1700)
			idx.Upsert(ctx, "b", 1600)
			idx.Upsert(ctx, "d", 1500)

			Convey("Then TopN orders by overall desc then id asc with shared ranks", func() {
				top, err := idx.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldResemble, []repository.Entry{
					{Rank: 1, AthleteID: "a", Overall: 1700},
					{Rank: 2, AthleteID: "b", Overall: 1600},
					{Rank: 2, AthleteID: "c", Overall: 1600},
					{Rank: 4, AthleteID: "d", Overall: 1500},
				})
				So(idx.Count(ctx), ShouldEqual, 4)
			})

			Convey("Then Rank matches the table", func() {
				e, err := idx.Rank(ctx, "c")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 2)
				e, _ = idx.Rank(ctx, "d")
				So(e.Rank, ShouldEqual, 4)
			})

			Convey("Then moving an athlete repositions it", func() {
				idx.Upsert(ctx, "d", 1800)
				idx.Upsert(ctx, "d", 1800)
				e, _ := idx.Rank(ctx, "d")
				So(e.Rank, ShouldEqual, 1)
				So(idx.Count(ctx), ShouldEqual, 4)
				top, _ := idx.TopN(ctx, 2)
				So(top[1].AthleteID, ShouldEqual, "a")
			})
		})

		Convey("When queried for unknown athletes or bad limits", func() {
			_, err := idx.Rank(ctx, "x")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = idx.TopN(ctx, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When rebuilt from store rows", func() {
			idx.Upsert(ctx, "stale", 2000)
			idx.Rebuild(ctx, []model.RankedAthlete{{AthleteID: "x", Overall: 1510}, {AthleteID: "y", Overall: 1520}})

			Convey("Then previous contents are replaced", func() {
				So(idx.Count(ctx), ShouldEqual, 2)
				_, err := idx.Rank(ctx, "stale")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				top, _ := idx.TopN(ctx, 5)
				So(top[0].AthleteID, ShouldEqual, "y")
			})
		})
	})
}

func TestRankingsAgainstSort(t *testing.T) {
	ctx := context.Background()

	Convey("Given many random upserts", t, func() {
		idx := repository.NewRankings(seeded())
		r := rand.New(rand.NewPCG(7, 7))
		want := map[string]int{}
		for i := 0; i < 2000; i++ {
			id := fmt.Sprintf("ath-%03d", r.IntN(300))
			overall := 1000 + r.IntN(40)*10
			idx.Upsert(ctx, id, overall)
			want[id] = overall
		}

		rows := make([]repository.Entry, 0, len(want))
		for id, o := range want {
			rows = append(rows, repository.Entry{AthleteID: id, Overall: o})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Overall != rows[j].Overall {
				return rows[i].Overall > rows[j].Overall
			}
			return rows[i].AthleteID < rows[j].AthleteID
		})

		Convey("Then the treap agrees with a full sort", func() {
			top, err := idx.TopN(ctx, len(rows))
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, len(rows))
			for i := range rows {
				So(top[i].AthleteID, ShouldEqual, rows[i].AthleteID)
				e, _ := idx.Rank(ctx, rows[i].AthleteID)
				So(e.Rank, ShouldEqual, top[i].Rank)
			}
		})
	})
}
