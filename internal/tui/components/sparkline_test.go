package components

import (
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func TestSparklineWindow(t *testing.T) {
	s := NewSparkline(3, "rchash", lipgloss.NewStyle())
	for _, v := range []float64{10, 1, 2, 4} {
		s.Add(v)
	}
	require.Equal(t, []float64{1, 2, 4}, s.Data)
	require.Equal(t, 4.0, s.Max)
	require.Equal(t, "▂▄█", s.Bars())
}

func TestSparklinePads(t *testing.T) {
	s := NewSparkline(5, "", lipgloss.NewStyle())
	s.Add(0)
	s.Add(-3)
	bars := s.Bars()
	require.Equal(t, 5, utf8.RuneCountInString(bars))
	require.Equal(t, "▁▁   ", bars)
}

func TestSparklineZeroWidth(t *testing.T) {
	s := NewSparkline(0, "x", lipgloss.NewStyle())
	s.Add(1)
	require.Empty(t, s.View())
}
