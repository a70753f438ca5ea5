package inference_test

import (
	"testing"

	"github.com/okian/velorank/internal/domain/dimension"
	"github.com/okian/velorank/internal/domain/inference"
	"github.com/okian/velorank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func elevation(m int) *int { return &m }

func TestInfer(t *testing.T) {
	Convey("Given the default inferencer", t, func() {
		inf := inference.Default()
		catalog := dimension.Default()

		Convey("When a mountain grand tour stage is inferred from scratch", func() {
			race := model.Race{Name: "Stage 17", Category: "GT", Terrain: "mountain", FinishType: "summit", ElevationM: elevation(4500)}
			out := inf.Infer(race, nil)

			Convey("Then terrain, finish, category and elevation rules all fire", func() {
				So(out["terrain_long_climbs"], ShouldEqual, 0.9)
				So(out["terrain_altitude"], ShouldEqual, 0.7)
				So(out["race_gc"], ShouldEqual, 0.5)
				So(out["race_stagerace"], ShouldEqual, 0.8)
				So(out["terrain_medium_climbs"], ShouldEqual, 0.7)
			})

			Convey("Then only the first elevation rule fires", func() {
				So(out["terrain_punch_climbs"], ShouldEqual, 0)
			})

			Convey("Then the output is total over the catalog", func() {
				for _, k := range catalog.Keys() {
					_, ok := out[k]
					So(ok, ShouldBeTrue)
				}
				So(out["weather_rain"], ShouldEqual, 0)
			})
		})

		Convey("When an explicit weight is already set", func() {
			race := model.Race{Name: "Paris-Roubaix", Category: "Monument", Terrain: "cobbles"}
			existing := map[string]float64{"terrain_cobbles": 0.4}

			first := inf.Infer(race, existing)
			second := inf.Infer(race, first)

			Convey("Then it is never overwritten, however often inference runs", func() {
				So(first["terrain_cobbles"], ShouldEqual, 0.4)
				So(second["terrain_cobbles"], ShouldEqual, 0.4)
				So(existing, ShouldResemble, map[string]float64{"terrain_cobbles": 0.4})
			})

			Convey("Then earlier rules win over later ones for the same dimension", func() {
				So(first["physical_handling"], ShouldEqual, 0.7)
				So(first["power_endurance_2h"], ShouldEqual, 0.8)
			})
		})

		Convey("When an explicit weight is zero", func() {
			out := inf.Infer(model.Race{Name: "Flat stage", Terrain: "flat"}, map[string]float64{"terrain_flat": 0})

			Convey("Then zero counts as unset and is filled", func() {
				So(out["terrain_flat"], ShouldEqual, 0.8)
			})
		})

		Convey("When the race name carries diacritics", func() {
			out := inf.Infer(model.Race{Name: "Liège-Bastogne-Liège", Category: "Monument"}, nil)
			So(out["terrain_punch_climbs"], ShouldEqual, 0.9)
			So(out["race_oneday"], ShouldEqual, 0.9)
		})

		Convey("When elevation is not provided", func() {
			out := inf.Infer(model.Race{Name: "Some Race", Category: "WT"}, nil)

			Convey("Then it is treated as zero and the low-elevation rule fires", func() {
				So(out["terrain_flat"], ShouldEqual, 0.8)
				So(out["terrain_medium_climbs"], ShouldEqual, 0)
			})
		})

		Convey("When elevation is moderate", func() {
			out := inf.Infer(model.Race{Name: "Unknown", ElevationM: elevation(1200)}, nil)
			So(out["terrain_flat"], ShouldEqual, 0)
		})

		Convey("When elevation is low", func() {
			out := inf.Infer(model.Race{Name: "Unknown", ElevationM: elevation(200)}, nil)
			So(out["terrain_flat"], ShouldEqual, 0.8)
		})
	})
}

func TestCustomRules(t *testing.T) {
	Convey("Given a one-rule table over a small catalog", t, func() {
		catalog := dimension.MustNew([]dimension.Dimension{
			{Key: "terrain_flat", Category: dimension.Terrain},
			{Key: "power_sprint_5s", Category: dimension.Power},
		})
		inf := inference.New(catalog, []inference.Rule{{
			Field: inference.FieldFinish, Op: inference.OpEquals, Terms: []string{"bunch"},
			Set: []inference.Weight{{Key: "power_sprint_5s", Value: 1}},
		}})

		So(inf.Infer(model.Race{FinishType: "Bunch"}, nil), ShouldResemble, map[string]float64{"terrain_flat": 0, "power_sprint_5s": 1})
		So(inf.Infer(model.Race{FinishType: "bunch_sprint"}, nil)["power_sprint_5s"], ShouldEqual, 0)
	})
}

func TestTemplates(t *testing.T) {
	Convey("Given the race templates", t, func() {
		So(len(inference.TemplateNames()), ShouldEqual, 17)

		Convey("When a template is looked up by display name", func() {
			w, ok := inference.Template("Flat Sprint Stage")
			So(ok, ShouldBeTrue)
			So(w["race_sprint_finish"], ShouldEqual, 1.0)
			So(w["power_sprint_5s"], ShouldEqual, 1.0)
			So(w["terrain_flat"], ShouldEqual, 0.8)
			_, hasCobbles := w["terrain_cobbles"]
			So(hasCobbles, ShouldBeFalse)
		})

		Convey("When every template is expanded", func() {
			catalog := dimension.Default()
			for _, name := range inference.TemplateNames() {
				w, ok := inference.Template(name)
				So(ok, ShouldBeTrue)
				for k, v := range w {
					So(catalog.Has(k), ShouldBeTrue)
					So(v, ShouldBeBetweenOrEqual, 0.0, 1.0)
				}
			}
		})

		Convey("When the template is unknown", func() {
			_, ok := inference.Template("velodrome")
			So(ok, ShouldBeFalse)
		})
	})
}
