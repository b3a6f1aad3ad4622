package directive

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// The generation service embeds commands in its replies using two tag
// families:
//
//	[STATE_UPDATE: key=value]
//	[ACTION: ADD_ITEM(name, icon)] / [ACTION: REMOVE_ITEM(name)]
//	[ADD_ITEM: name="..." icon="..."]
//
// Every occurrence of a tag is processed, not just the first, and all
// STATE_UPDATE tags are extracted and stripped before the action
// family is scanned.
var (
	statePattern     = regexp.MustCompile(`\[STATE_UPDATE:\s*(.+?)\]`)
	actionPattern    = regexp.MustCompile(`\[ACTION:\s*(.+?)\]`)
	addItemKWPattern = regexp.MustCompile(`\[ADD_ITEM:\s*name=["']?(.+?)["']?\s+icon=["']?(.+?)["']?\s*\]`)
	addItemPattern   = regexp.MustCompile(`ADD_ITEM\(\s*['"]?(.+?)['"]?\s*,\s*['"]?(.+?)['"]?\s*\)`)
)

// Parse extracts directive tags from generated text. Matched tags are
// always removed from the returned display text, even when their
// payload is malformed; a malformed payload drops that single effect
// and the turn continues. Tag text whose wrapping pattern does not
// match is left visible so a parser/prompt mismatch surfaces.
func Parse(text string, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}

	res := Result{Updates: make(map[string]any)}

	for _, match := range statePattern.FindAllStringSubmatch(text, -1) {
		payload := strings.TrimSpace(match[1])
		key, rawValue, ok := strings.Cut(payload, "=")
		if !ok {
			logger.Warn("Malformed STATE_UPDATE payload", "payload", payload)
			continue
		}
		key = strings.TrimSpace(key)
		value := CoerceValue(strings.TrimSpace(rawValue))
		res.Effects = append(res.Effects, Effect{
			Kind:  EffectStateUpdate,
			Key:   key,
			Value: value,
		})
		res.Updates[key] = value
	}
	text = statePattern.ReplaceAllString(text, "")

	for _, match := range actionPattern.FindAllStringSubmatch(text, -1) {
		payload := strings.TrimSpace(match[1])
		switch {
		case strings.HasPrefix(payload, "ADD_ITEM"):
			args := addItemPattern.FindStringSubmatch(payload)
			if args == nil {
				logger.Warn("Malformed ADD_ITEM action", "payload", payload)
				continue
			}
			res.Effects = append(res.Effects, Effect{
				Kind: EffectAddItem,
				Name: strings.TrimSpace(args[1]),
				Icon: strings.TrimSpace(args[2]),
			})
		case strings.HasPrefix(payload, "REMOVE_ITEM"):
			name := strings.TrimPrefix(payload, "REMOVE_ITEM(")
			name = strings.TrimSuffix(name, ")")
			name = strings.Trim(strings.TrimSpace(name), `'"`)
			if name == "" {
				logger.Warn("Malformed REMOVE_ITEM action", "payload", payload)
				continue
			}
			res.Effects = append(res.Effects, Effect{
				Kind: EffectRemoveItem,
				Name: name,
			})
		default:
			logger.Warn("Unrecognized action directive", "payload", payload)
		}
	}
	text = actionPattern.ReplaceAllString(text, "")

	// Keyword surface syntax for item grants, normalized to the same
	// add-item effect as the positional form.
	for _, match := range addItemKWPattern.FindAllStringSubmatch(text, -1) {
		res.Effects = append(res.Effects, Effect{
			Kind: EffectAddItem,
			Name: strings.TrimSpace(match[1]),
			Icon: strings.TrimSpace(match[2]),
		})
	}
	text = addItemKWPattern.ReplaceAllString(text, "")

	res.Text = strings.TrimSpace(text)
	return res
}

// CoerceValue converts a directive payload value to its typed form:
// literal true/false (case-insensitive) to bool, all-digit strings to
// int, everything else stays a string.
func CoerceValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && isDigits(raw) {
			return n
		}
	}
	return raw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
