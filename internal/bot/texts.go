// ABOUTME: User-facing reply texts
// ABOUTME: Kept together so wording can change without touching handler logic

package bot

const (
	textNoAccess        = "You don't have access to this bot. Ask an administrator for access."
	textNoAccessShort   = "You don't have access to this bot."
	textGreeting        = "Hi! I relay your messages to a language model. Send me a request."
	textHistoryCleared  = "History cleared."
	textHistoryFailed   = "Something went wrong while clearing your history."
	textRequestUsage    = "Please provide an invite code. Example: /request_access ABC123"
	textAccessGranted   = "Access granted! You can now use the bot."
	textInvalidInvite   = "Invalid or already used invite code."
	textNoAdminRights   = "You don't have administrator rights."
	textAddUserUsage    = "Please provide a user ID. Example: /add_user 123456789"
	textUserAdded       = "User %d has been added to the allow-list."
	textAddUserFailed   = "Could not add the user. Try again later."
	textInviteCreated   = "New invite code: `%s`"
	textInviteFailed    = "Could not create an invite code. Try again later."
	textAdminMenu       = "Admin menu:"
	textUsersList       = "Allowed users:\n%s"
	textNoUsers         = "No allowed users."
	textUsersFailed     = "Could not fetch the user list."
	textMenuClosed      = "Admin menu closed."
	textTyping          = "Typing..."
	textUpstreamFailed  = "Could not get a response from the API. Try again later."
	textGenericError    = "An error occurred while processing your request."
	textButtonInvite    = "Generate invite code"
	textButtonViewUsers = "View users"
	textButtonCloseMenu = "Close menu"
	textHelp            = "Commands:\n" +
		"/start - check access\n" +
		"/request_access <code> - redeem an invite code\n" +
		"/clearhistory - forget the conversation so far\n" +
		"/help - this message\n\n" +
		"Anything else you write is sent to the model."
	textHelpAdmin = "\n\nAdmin:\n" +
		"/add_user <id> - allow a user\n" +
		"/generate_invite - create an invite code\n" +
		"/admin - admin menu"
)

// Callback tokens carried by the admin menu buttons.
const (
	callbackGenerateInvite = "generate_invite"
	callbackViewUsers      = "view_users"
	callbackCloseMenu      = "close_menu"
)
