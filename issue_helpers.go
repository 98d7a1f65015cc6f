package shardspec

// IssueAt creates an Issue at the given path with provided code, message and params map.
// The Cause is filled with the sentinel registered for code.
func IssueAt(p PathRef, code, msg string, params map[string]any) Issue {
	return Issue{Path: p.Pointer(), Code: code, Message: msg, Cause: codeCauses[code], Params: params}
}
