package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardcounter/internal/httpapi"
	"github.com/lox/cardcounter/internal/outcome"
)

const replayInput = `#N1127. ✅7(♠♥3♣) - 2(♦5♣)
⏰ #N1128. 2(♠9♥) - 3(♦5♣2♠)

#N1128. 2(♠9♥) - ✅3(♦5♣2♠)
#N1129. 🔰5(♠♥) - 5(♦♣)
#N1127. ✅7(♠♥3♣) - 2(♦5♣)
🕐 #N1130. 2(♠9♥) - 2(♦5♣)
`

func TestReplay(t *testing.T) {
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})

	snap, err := replay(context.Background(), logger, strings.NewReader(replayInput))
	require.NoError(t, err)

	assert.Equal(t, 3, snap.PairTotal(), "duplicate and pending lines are not counted")
	assert.Equal(t, []int{1127}, snap.Pair(outcome.Pair32).Games)
	assert.Equal(t, []int{1128}, snap.Pair(outcome.Pair23).Games)
	assert.Equal(t, []int{1129}, snap.Pair(outcome.Pair22).Games)
	assert.Equal(t, 1, snap.Winner(outcome.Player).Count)
	assert.Equal(t, 1, snap.Winner(outcome.Banker).Count)
	assert.Equal(t, 1, snap.Winner(outcome.Tie).Count)
}

func TestPrintReplay(t *testing.T) {
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	snap, err := replay(context.Background(), logger, strings.NewReader(replayInput))
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, printReplay(&text, snap, false))
	assert.Contains(t, text.String(), "Total jeux analysés : *3*")

	var raw bytes.Buffer
	require.NoError(t, printReplay(&raw, snap, true))
	var st httpapi.Stats
	require.NoError(t, json.Unmarshal(raw.Bytes(), &st))
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Winners["tie"].Count)
}
