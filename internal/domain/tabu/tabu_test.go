package tabu_test

import (
	"testing"

	"github.com/okian/talksched/internal/domain/tabu"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemory(t *testing.T) {
	Convey("Given a new tabu memory", t, func() {
		m := tabu.NewMemory()

		Convey("When a key is added", func() {
			m.Add(42, 10)

			Convey("Then it is tabu before its expiry", func() {
				So(m.IsTabu(42, 9), ShouldBeTrue)
				So(m.IsTabu(42, 10), ShouldBeFalse)
				So(m.IsTabu(7, 0), ShouldBeFalse)
			})

			Convey("Then a refresh extends it", func() {
				m.Add(42, 20)
				So(m.IsTabu(42, 15), ShouldBeTrue)
			})

			Convey("Then an earlier expiry shortens it", func() {
				m.Add(42, 3)
				So(m.IsTabu(42, 5), ShouldBeFalse)
			})
		})

		Convey("When key zero is used", func() {
			m.Add(0, 5)
			So(m.IsTabu(0, 1), ShouldBeTrue)
		})
	})

	Convey("Given a small memory", t, func() {
		m := tabu.NewMemory(tabu.WithCapacity(2))

		Convey("When more keys than capacity are added", func() {
			for k := uint64(1); k <= 9; k++ {
				m.Add(k, 100)
			}

			Convey("Then the oldest keys are forgotten", func() {
				So(m.IsTabu(1, 0), ShouldBeFalse)
				So(m.IsTabu(2, 0), ShouldBeTrue)
				So(m.IsTabu(9, 0), ShouldBeTrue)
			})
		})

		Convey("When a key is refreshed before its ring slot is reused", func() {
			m.Add(1, 10)
			for k := uint64(2); k <= 7; k++ {
				m.Add(k, 10)
			}
			m.Add(1, 50)
			m.Add(8, 10)

			Convey("Then the refreshed entry survives eviction of the stale one", func() {
				So(m.IsTabu(1, 40), ShouldBeTrue)
			})
		})
	})

	Convey("Given tenure settings", t, func() {
		So(tabu.CapacityFor(7, 3), ShouldEqual, 40)
		So(tabu.CapacityFor(1, 0), ShouldEqual, 32)
	})
}
