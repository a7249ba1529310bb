/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat, Friend and Achievement Business Logic Errors
const (
	// ErrChatNotFound indicates that the addressed chat does not exist.
	ErrChatNotFound = 2101

	// ErrNotChatParticipant indicates that the caller is not a participant of the addressed chat.
	ErrNotChatParticipant = 2102

	// ErrChatTypeInvalid indicates that an unknown chat type was requested.
	ErrChatTypeInvalid = 2103

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageEmpty indicates that a message carried neither text, files nor a sticker.
	ErrMessageEmpty = 2202

	// ErrMessageNotFound indicates that the addressed message does not exist.
	ErrMessageNotFound = 2203

	// ErrSelfFriendRequest indicates that a user tried to befriend (or unfriend) themselves.
	ErrSelfFriendRequest = 2301

	// ErrAlreadyFriends indicates that both users are already friends.
	ErrAlreadyFriends = 2302

	// ErrFriendRequestExists indicates that a pending request between the users already exists.
	ErrFriendRequestExists = 2303

	// ErrFriendRequestNotFound indicates that the request does not exist, is not pending, or is not addressed to the caller.
	ErrFriendRequestNotFound = 2304

	// ErrFriendNotFound indicates that the addressed user is not a friend of the caller.
	ErrFriendNotFound = 2305

	// ErrAchievementNotFound indicates that the addressed achievement does not exist.
	ErrAchievementNotFound = 2401

	// ErrAchievementNotAssigned indicates that the user does not hold the achievement being revoked.
	ErrAchievementNotAssigned = 2402

	// ErrAchievementInUse indicates that an achievement cannot be deleted while users hold it.
	ErrAchievementInUse = 2403

	// ErrAchievementExists indicates that an achievement with the same name already exists.
	ErrAchievementExists = 2404

	// ErrFileSizeTooLarge indicates that the announced upload exceeds the size limit.
	ErrFileSizeTooLarge = 2501

	// ErrFileTypeInvalid indicates that the announced upload has a disallowed name or MIME type.
	ErrFileTypeInvalid = 2502

	// ErrAssetKeyInvalid indicates that a committed asset key was not issued for the caller.
	ErrAssetKeyInvalid = 2503
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid or incorrect.
	ErrPowChallengeInvalid = 3002

	// ErrSessionKicked indicates that the current client connection has been terminated.
	ErrSessionKicked = 3004

	// ErrAlreadyLoggedIn indicates that an authenticated caller hit an anonymous-only endpoint.
	ErrAlreadyLoggedIn = 3005

	// ErrInvalidUsername indicates that the username does not match the allowed format.
	ErrInvalidUsername = 3006

	// ErrInvalidPassword indicates that the password does not satisfy the length rules.
	ErrInvalidPassword = 3007

	// ErrUserAlreadyExists indicates that the username or email is already registered.
	ErrUserAlreadyExists = 3008

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = 3009

	// ErrUserNotFound indicates that the addressed user does not exist.
	ErrUserNotFound = 3010

	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3011

	// ErrForbidden indicates that the caller's role does not allow the operation.
	ErrForbidden = 3012

	// ErrUserBlocked indicates that the account has been blocked by a moderator.
	ErrUserBlocked = 3013

	// ErrRoleInvalid indicates an unknown role name.
	ErrRoleInvalid = 3014
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the object storage rejected the operation.
	ErrFileStorageFailed = 5001

	// ErrStorageUnavailable indicates that no object storage is configured.
	ErrStorageUnavailable = 5002

	// ErrServiceUnavailable indicates that a backing service (the store) is unreachable.
	ErrServiceUnavailable = 5003
)
