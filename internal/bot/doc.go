// Package bot routes inbound chat events to handlers.
//
// # Flow
//
// A transport (see internal/telegram) turns platform updates into Update
// values and feeds them to Dispatcher.Run. Each update is handled in its
// own goroutine:
//
//	update -> dedupe -> command | callback | free text
//
// Free text goes through the group filter, the allow-list check, the
// user's stored context and the language model, and the answer comes back
// in chunks that fit the transport's message limit. Turns of one user are
// serialized so concurrent messages cannot overwrite each other's context.
//
// # Commands
//
//   - /start, /help, /clearhistory
//   - /request_access <code>: redeem a single-use invite
//   - /add_user <id>, /generate_invite, /admin: admin only
//
// The /admin menu carries three buttons (generate_invite, view_users,
// close_menu) handled as stateless callbacks that edit the menu message.
//
// # Testing
//
// Dispatcher depends only on Messenger and llm.Client, so tests drive it
// with in-memory fakes and store.MockStore.
package bot
