package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Skywatch/internal/services/notifier"
)

func TestReadEventFromFlag(t *testing.T) {
	ev, err := readEvent(`{"kind":"achievement","userId":3,"achievement":{"achievementId":"a","achievementName":"Night Owl"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, notifier.KindAchievement, ev.Kind)
	assert.Equal(t, int64(3), ev.UserID)
	require.NotNil(t, ev.Achievement)
	assert.Equal(t, "Night Owl", ev.Achievement.Name)
}

func TestReadEventFromStdin(t *testing.T) {
	ev, err := readEvent("", strings.NewReader(`{"kind":"space_weather","userIds":[1,2],"spaceWeather":{"severity":"minor","region":"Arctic"}}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ev.UserIDs)
}

func TestReadEventRejects(t *testing.T) {
	_, err := readEvent(`{"userId":3}`, nil)
	assert.Error(t, err)
	_, err = readEvent(`{"kind":"achievement","bogus":1}`, nil)
	assert.Error(t, err)
}
