// Package cli provides the chapterctl command-line interface for managing
// schools and chapter admin assignments.
//
// # Overview
//
// chapterctl runs in one of two modes. Without -server it opens the
// configured storage directly (same configuration as chapterd) and acts as a
// trusted operator: changes are recorded under -as, or $USER, and are not
// checked against the permission matrix. With -server it calls a running
// chapterd over HTTP and every call is authorized as the token's user.
//
// # Commands
//
// migrate: Create or upgrade the database schema (local only)
//
//	chapterctl -config chapters.yaml migrate
//
// add-school: Create a school
//
//	chapterctl add-school -name "Lincoln High" -location "Gulu"
//
// assign: Grant a chapter role
//
//	chapterctl assign -school <id> -user alice -role CHAPTER_SUPER_ADMIN
//
// remove: Deactivate an assignment
//
//	chapterctl remove -id <assignment-id>
//
// list: List admins of a school, schools of a user, or every school
//
//	chapterctl list -school <id>
//	chapterctl list -user alice
//	chapterctl -json list
//
// stats: Update school statistics
//
//	chapterctl stats -school <id> -volunteer-hours 120 -active-members 14
//
// permissions: Show what the caller may do
//
//	chapterctl -server https://chapters.example.org -token $TOKEN permissions -school <id>
//
// audit: Read the database audit trail (local only)
//
//	chapterctl audit -school <id> -since 72h
//
// maintenance: List or run scheduled jobs now (local only)
//
//	chapterctl maintenance list
//	chapterctl maintenance run audit-retention
//
// # Remote Authentication
//
// Either a static bearer token (-token) or OAuth2 client credentials
// (-client-id, -client-secret, -token-url). The chapterctl binary also reads
// CHAPTERS_SERVER_URL, CHAPTERS_TOKEN, CHAPTERS_CLIENT_ID,
// CHAPTERS_CLIENT_SECRET and CHAPTERS_TOKEN_URL.
package cli
