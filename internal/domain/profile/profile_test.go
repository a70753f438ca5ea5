package profile_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/velorank/internal/domain/dimension"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/internal/domain/profile"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultTables(t *testing.T) {
	Convey("Given the default profile and basket tables", t, func() {
		catalog := dimension.Default()

		Convey("Then each profile's weights sum to one", func() {
			So(len(profile.DefaultProfiles()), ShouldEqual, 7)
			for _, p := range profile.DefaultProfiles() {
				sum := 0.0
				for _, c := range p.Components {
					sum += c.Weight
					So(catalog.Has(c.Key), ShouldBeTrue)
				}
				So(sum, ShouldAlmostEqual, 1.0, 1e-9)
			}
		})

		Convey("Then the basket weights sum to one and reference catalog dimensions", func() {
			sum := 0.0
			for _, c := range profile.DefaultBasket() {
				sum += c.Weight
				So(catalog.Has(c.Key), ShouldBeTrue)
			}
			So(sum, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Then the keys include the all-rounder last", func() {
			keys := profile.Default().Keys()
			So(len(keys), ShouldEqual, 8)
			So(keys[7], ShouldEqual, profile.AllRounder)
		})
	})
}

func TestDeriveProfiles(t *testing.T) {
	Convey("Given default ratings", t, func() {
		agg := profile.Default()
		out := agg.DeriveProfiles(model.Ratings{})

		Convey("Then every profile reads the default", func() {
			for _, k := range agg.Keys() {
				So(out[k], ShouldEqual, model.DefaultRating)
			}
			So(agg.DeriveOverall(model.Ratings{}), ShouldEqual, model.DefaultRating)
		})
	})

	Convey("Given a sprinter's dimensions", t, func() {
		agg := profile.Default()
		dims := model.Ratings{
			"power_sprint_5s":       2000,
			"terrain_flat":          1800,
			"race_sprint_finish":    1900,
			"physical_topspeed":     1700,
			"physical_acceleration": 1600,
			"terrain_long_climbs":   1200,
		}
		out := agg.DeriveProfiles(dims)

		Convey("Then the sprinter profile is the weighted blend", func() {
			// 2000*.35 + 1800*.2 + 1900*.25 + 1700*.1 + 1600*.1
			So(out[profile.Sprinter], ShouldEqual, 1865)
		})

		Convey("Then the all-rounder is the mean of the fresh profiles", func() {
			sum := 0
			for _, p := range profile.DefaultProfiles() {
				sum += out[p.Key]
			}
			So(out[profile.AllRounder], ShouldEqual, int(math.Round(float64(sum)/7)))
		})

		Convey("Then recomputing a record refreshes profiles and overall together", func() {
			rec := model.NewRatingRecord("a", dimension.Default().Keys(), agg.Keys())
			for k, v := range dims {
				rec.Dimensions[k] = v
			}
			rec.Profiles[profile.Sprinter] = 1000
			agg.Recompute(rec)
			So(rec.Profiles[profile.Sprinter], ShouldEqual, 1865)
			So(rec.Overall, ShouldBeBetweenOrEqual, model.MinRating, model.MaxRating)
			So(rec.Overall, ShouldEqual, agg.DeriveOverall(rec.Dimensions))
		})
	})

	Convey("Given dimensions at the bounds", t, func() {
		agg := profile.Default()
		low := model.Ratings{}
		high := model.Ratings{}
		for _, k := range dimension.Default().Keys() {
			low[k] = model.MinRating
			high[k] = model.MaxRating
		}
		for _, v := range agg.DeriveProfiles(low) {
			So(v, ShouldEqual, model.MinRating)
		}
		for _, v := range agg.DeriveProfiles(high) {
			So(v, ShouldEqual, model.MaxRating)
		}
		So(agg.DeriveOverall(high), ShouldEqual, model.MaxRating)
	})
}

func TestNewAggregator(t *testing.T) {
	Convey("Given custom tables", t, func() {
		basket := []profile.Component{{Key: "x", Weight: 1}}

		Convey("When a profile does not sum to one", func() {
			_, err := profile.NewAggregator([]profile.Profile{{Key: "p", Components: []profile.Component{{Key: "x", Weight: 0.5}}}}, "", basket)
			So(errors.Is(err, profile.ErrWeightSum), ShouldBeTrue)
		})

		Convey("When the basket does not sum to one", func() {
			_, err := profile.NewAggregator([]profile.Profile{{Key: "p", Components: basket}}, "", []profile.Component{{Key: "x", Weight: 2}})
			So(errors.Is(err, profile.ErrWeightSum), ShouldBeTrue)
		})

		Convey("When profiles repeat", func() {
			p := profile.Profile{Key: "p", Components: basket}
			_, err := profile.NewAggregator([]profile.Profile{p, p}, "", basket)
			So(errors.Is(err, profile.ErrDuplicateKey), ShouldBeTrue)
		})

		Convey("When no profiles are given", func() {
			_, err := profile.NewAggregator(nil, "", basket)
			So(errors.Is(err, profile.ErrEmptyProfiles), ShouldBeTrue)
		})

		Convey("When the tables are valid", func() {
			agg, err := profile.NewAggregator([]profile.Profile{
				{Key: "p1", Components: []profile.Component{{Key: "x", Weight: 1}}},
				{Key: "p2", Components: []profile.Component{{Key: "y", Weight: 1}}},
			}, "all", basket)
			So(err, ShouldBeNil)
			out := agg.DeriveProfiles(model.Ratings{"x": 1601, "y": 1500})
			So(out, ShouldResemble, model.Ratings{"p1": 1601, "p2": 1500, "all": 1551})
		})
	})
}
