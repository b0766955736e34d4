// Package assistants resolves a user query by running the model and tool
// use loop: the model is asked for a response, requested tools are
// dispatched, their results are folded back into the conversation, and the
// loop ends when the model is done or the turn budget is spent.
package assistants

import "github.com/effective-security/xlog"

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "assistants")
