package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestCell(t *testing.T) {
	assert.Equal(t, "ab  ", cell("ab", 4))
	assert.Equal(t, 6, runewidth.StringWidth(cell("Instagram", 6)))
	assert.Equal(t, "Insta…", cell("Instagram", 6))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[..........]", progressBar(0, 10))
	assert.Equal(t, "[#####.....]", progressBar(50, 10))
	assert.Equal(t, "[##########]", progressBar(100, 10))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "45 min", formatMinutes(45))
	assert.Equal(t, "1h 30m", formatMinutes(90))
	assert.Equal(t, "2h 0m", formatMinutes(120))
}

func TestAppColor(t *testing.T) {
	assert.Equal(t, tcell.ColorDefault, appColor("not-a-color"))
	assert.NotEqual(t, tcell.ColorDefault, appColor("#E1306C"))
	assert.NotEqual(t, percentColor(0), percentColor(100))
}
