// Package browser drives a real browser page through Playwright and exposes
// it as a dom.Document the page patches can run against.
//
// # Sessions
//
// A SessionManager owns the Playwright driver and the browser sessions
// started from it. A Session bundles a browser, an isolated context and the
// page the agent is attached to.
//
// # Live page
//
// Page wraps a session's playwright.Page. Elements are remote element
// handles; every element operation is one round trip that runs a small
// function in the page. Handles obtained during a reconcile pass are
// disposed when the pass calls Release.
//
// Two bindings are exposed to the page. A MutationObserver installed on
// document.body reports childList records of the whole subtree through the
// first; event listeners added by the patches call back through the second.
// Both callbacks arrive on Playwright's goroutines and are handed to the
// dispatch function set with SetDispatch, which is how the agent serializes
// them on its event loop.
//
// A new document, whether from Reload or from navigation, starts with no
// observer and no listeners. OnLoad callbacks are the signal to set them up
// again.
package browser
