package ui

import (
	tea "charm.land/bubbletea/v2"
)

func newKeyPressMsg(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg(tea.Key{Code: code})
}

// newTextKeyPressMsg types the first rune of text.
func newTextKeyPressMsg(text string) tea.KeyPressMsg {
	if len(text) == 0 {
		return tea.KeyPressMsg(tea.Key{})
	}
	return tea.KeyPressMsg(tea.Key{Code: []rune(text)[0], Text: text})
}

func newCtrlKeyPressMsg(char rune) tea.KeyPressMsg {
	return tea.KeyPressMsg(tea.Key{Code: char, Mod: tea.ModCtrl})
}

var (
	testKeyEnter = newKeyPressMsg(tea.KeyEnter)
	testKeyEsc   = newKeyPressMsg(tea.KeyEscape)
	testKeyUp    = newKeyPressMsg(tea.KeyUp)
	testKeyCtrlC = newCtrlKeyPressMsg('c')
	testKeyCtrlY = newCtrlKeyPressMsg('y')
)
