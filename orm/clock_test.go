package orm_test

import (
	"context"
	"testing"
	"time"

	"github.com/mickamy/kanboard/orm"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestNow(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := orm.WithClock(context.Background(), fixedClock{fixed})
	if got := orm.Now(ctx); !got.Equal(fixed) {
		t.Errorf("Now = %v, want %v", got, fixed)
	}

	before := time.Now()
	if got := orm.Now(context.Background()); got.Before(before) {
		t.Errorf("Now without clock = %v, want >= %v", got, before)
	}
}
