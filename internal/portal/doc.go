// Package portal opens authenticated sessions against the school gradebook
// portal.
//
// Two drivers are available. Session uses net/http with a cookie jar and is
// the default. BrowserSession drives headless Chrome through chromedp for
// portals that render the logon form with scripts. Both pace requests with a
// token bucket and map transport failures to NETWORK errors. A logon whose
// response lacks the cabinet marker is an AUTH error.
package portal
