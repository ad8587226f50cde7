// Package preflight provides readiness checks for the filesystem paths and
// the AI oracle that claimcheck depends on.
//
// These checks run in two contexts:
//   - The daemon runs the directory checks at startup and logs every failure,
//     so a misconfigured deployment is visible before the first claim arrives.
//   - The CLI "claimcheck health --deep" appends the results to the regular
//     component health table.
//
// Directory checks are cheap and also feed the daemon's /api/health report.
// The oracle probe issues a real completion and is never run per request.
package preflight
