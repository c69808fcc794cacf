package gitrepo

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to pin derived branch names.
var timeNow = time.Now
