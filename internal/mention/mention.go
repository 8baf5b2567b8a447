// Package mention extracts @-mention handles from free text.
//
// This is deliberately a leaf package with no dependencies on the rest of
// the application: Extract is a pure function over a string. Resolving
// handles to users (and deciding who actually gets notified) is the service
// layer's job — see service.Notifier.ProcessMentions.
package mention

import "regexp"

// handlePattern matches "@" followed by one or more handle characters.
// Handles are alphanumeric plus underscore, matching the username rules
// enforced at registration. The capture group is the handle without the "@".
var handlePattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// Extract returns every mention handle appearing in text, in order of
// appearance, without the leading "@".
//
// Extraction is case-preserving and does NOT deduplicate: the text
// "thanks @alice and @alice again" yields ["alice", "alice"]. Each
// occurrence is one entry; whether duplicates collapse into a single
// notification is a policy decision that doesn't belong in a text scanner.
func Extract(text string) []string {
	if text == "" {
		return nil
	}

	matches := handlePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handles = append(handles, m[1])
	}
	return handles
}
