package tivo

import "strings"

// IRCodeStandby powers the box in and out of standby. Sent once to wake
// the box; twice in a row to put it fully into standby.
const IRCodeStandby = "standby"

// irCodes is the enumerated IR code set the dispatcher accepts.
var irCodes = map[string]bool{
	IRCodeStandby: true,
	"tivo":        true,
	"livetv":      true,
	"guide":       true,
	"info":        true,
	"exit":        true,
	"up":          true,
	"down":        true,
	"left":        true,
	"right":       true,
	"select":      true,
	"thumbsup":    true,
	"thumbsdown":  true,
	"channelup":   true,
	"channeldown": true,
	"mute":        true,
	"volumeup":    true,
	"volumedown":  true,
	"record":      true,
	"play":        true,
	"pause":       true,
	"stop":        true,
	"slow":        true,
	"forward":     true,
	"reverse":     true,
	"replay":      true,
	"advance":     true,
	"enter":       true,
	"clear":       true,
	"cc_on":       true,
	"cc_off":      true,
	"num0":        true,
	"num1":        true,
	"num2":        true,
	"num3":        true,
	"num4":        true,
	"num5":        true,
	"num6":        true,
	"num7":        true,
	"num8":        true,
	"num9":        true,
	"action_a":    true,
	"action_b":    true,
	"action_c":    true,
	"action_d":    true,
}

// keyboardCodes is the enumerated keyboard code set: the navigation
// keys plus single letters and NUM digits for text entry.
var keyboardCodes = map[string]bool{
	"up":        true,
	"down":      true,
	"left":      true,
	"right":     true,
	"select":    true,
	"enter":     true,
	"clear":     true,
	"backspace": true,
	"space":     true,
	"minus":     true,
	"equals":    true,
}

// teleportCodes jump straight to a named screen.
var teleportCodes = map[string]bool{
	"tivo":       true,
	"livetv":     true,
	"guide":      true,
	"nowplaying": true,
}

// ValidIRCode reports whether code is in the enumerated IR set.
func ValidIRCode(code string) bool {
	return irCodes[strings.ToLower(code)]
}

// ValidKeyboardCode reports whether code is in the enumerated keyboard
// set. Single letters and digits are always valid.
func ValidKeyboardCode(code string) bool {
	code = strings.ToLower(code)
	if len(code) == 1 {
		c := code[0]
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	if strings.HasPrefix(code, "num") && len(code) == 4 {
		return code[3] >= '0' && code[3] <= '9'
	}
	return keyboardCodes[code]
}

// ValidTeleportCode reports whether code is in the enumerated teleport
// set.
func ValidTeleportCode(code string) bool {
	return teleportCodes[strings.ToLower(code)]
}
