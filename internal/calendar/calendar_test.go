package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestepper_Build(t *testing.T) {
	tp := Timestepper{
		Start:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC),
		StepDays: 1,
	}
	cal, err := tp.Build()
	require.NoError(t, err)
	assert.Equal(t, 10, cal.Len())
	assert.Equal(t, 0, cal.At(0).Index)
	assert.Equal(t, 9, cal.At(9).Index)
	assert.Equal(t, time.January, cal.At(0).Month)
}

func TestTimestepper_Build_MultiDayStep(t *testing.T) {
	tp := Timestepper{
		Start:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC),
		StepDays: 7,
	}
	cal, err := tp.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, cal.Len())
	assert.Equal(t, 7, cal.At(0).Days)
}

func TestTimestepper_Build_InvalidRange(t *testing.T) {
	tp := Timestepper{
		Start:    time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		StepDays: 1,
	}
	_, err := tp.Build()
	require.Error(t, err)
}

func TestTimestepper_Build_InvalidStepDays(t *testing.T) {
	tp := Timestepper{
		Start:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC),
		StepDays: 0,
	}
	_, err := tp.Build()
	require.Error(t, err)
}

func TestCalendar_StorageBalanceYear(t *testing.T) {
	tp := Timestepper{
		Start:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		StepDays: 1,
	}
	cal, err := tp.Build()
	require.NoError(t, err)
	assert.Equal(t, 366, cal.Len()) // 2020 is a leap year
}
