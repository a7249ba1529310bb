/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat, Friend and Achievement Business Logic Errors
	ErrChatNotFound:           {Code: ErrChatNotFound, Message: "Chat not found.", Status: http.StatusNotFound},
	ErrNotChatParticipant:     {Code: ErrNotChatParticipant, Message: "You are not a member of this chat.", Status: http.StatusForbidden},
	ErrChatTypeInvalid:        {Code: ErrChatTypeInvalid, Message: "Invalid chat type."},
	ErrMessageContentTooLong:  {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)."},
	ErrMessageEmpty:           {Code: ErrMessageEmpty, Message: "Message is empty."},
	ErrMessageNotFound:        {Code: ErrMessageNotFound, Message: "Message not found.", Status: http.StatusNotFound},
	ErrSelfFriendRequest:      {Code: ErrSelfFriendRequest, Message: "You cannot do that with yourself."},
	ErrAlreadyFriends:         {Code: ErrAlreadyFriends, Message: "You are already friends."},
	ErrFriendRequestExists:    {Code: ErrFriendRequestExists, Message: "Friend request already sent."},
	ErrFriendRequestNotFound:  {Code: ErrFriendRequestNotFound, Message: "Friend request not found.", Status: http.StatusNotFound},
	ErrFriendNotFound:         {Code: ErrFriendNotFound, Message: "Friend not found.", Status: http.StatusNotFound},
	ErrAchievementNotFound:    {Code: ErrAchievementNotFound, Message: "Achievement not found.", Status: http.StatusNotFound},
	ErrAchievementNotAssigned: {Code: ErrAchievementNotAssigned, Message: "Achievement not assigned to user."},
	ErrAchievementInUse:       {Code: ErrAchievementInUse, Message: "Cannot delete an achievement that is assigned to users."},
	ErrAchievementExists:      {Code: ErrAchievementExists, Message: "Achievement name already exists."},
	ErrFileSizeTooLarge:       {Code: ErrFileSizeTooLarge, Message: "File is too large (max %d MB)."},
	ErrFileTypeInvalid:        {Code: ErrFileTypeInvalid, Message: "File type is not allowed."},
	ErrAssetKeyInvalid:        {Code: ErrAssetKeyInvalid, Message: "Invalid file reference."},

	// 3xxx: User, Session, and Security Errors
	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again."},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again."},
	ErrSessionKicked:        {Code: ErrSessionKicked, Message: "You were signed in on another device."},
	ErrAlreadyLoggedIn:      {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "Username or email is already taken.", Status: http.StatusConflict},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrUserNotFound:         {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrUserBlocked:          {Code: ErrUserBlocked, Message: "This account has been blocked.", Status: http.StatusForbidden},
	ErrRoleInvalid:          {Code: ErrRoleInvalid, Message: "Invalid role."},

	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrForbidden:    {Code: ErrForbidden, Message: "Access denied.", Status: http.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed:  {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
	ErrStorageUnavailable: {Code: ErrStorageUnavailable, Message: "File storage is not configured.", Status: http.StatusServiceUnavailable},
	ErrServiceUnavailable: {Code: ErrServiceUnavailable, Message: "Service temporarily unavailable.", Status: http.StatusServiceUnavailable},
}
