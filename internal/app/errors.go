package app

import "errors"

var (
	// ErrMissingFields is returned when a registration field is empty.
	ErrMissingFields = errors.New("All fields are required")

	// ErrUserExists is returned when the registration email is taken.
	ErrUserExists = errors.New("User already exists")

	// ErrUserNotFound is returned when a login email has no account.
	ErrUserNotFound = errors.New("User doesn't exist")

	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	// ErrInvalidAdminCredentials covers both wrong admin email and password.
	ErrInvalidAdminCredentials = errors.New("Invalid admin credentials")

	// ErrNoFile is returned when the upload form has no file part.
	ErrNoFile = errors.New("No file uploaded")

	// ErrUnsupportedFileType is returned for non-PDF, non-image uploads.
	ErrUnsupportedFileType = errors.New("Only PDF and image reports are supported")

	// ErrUnreadableDocument is returned when too little text was extracted
	// to produce a meaningful summary.
	ErrUnreadableDocument = errors.New("Unable to extract text. Please upload a clearer report.")

	// ErrReportNotFound is returned for unknown or foreign report IDs.
	ErrReportNotFound = errors.New("Report not found")

	// ErrMissingAIKey is returned when summarization is requested but no
	// AI provider credential is configured.
	ErrMissingAIKey = errors.New("Missing AI API key.")

	// ErrFileUploadFailed is returned when the original file could not be
	// written to object storage.
	ErrFileUploadFailed = errors.New("File upload failed.")

	// ErrAIAnalysisFailed is returned when the summarization call fails.
	ErrAIAnalysisFailed = errors.New("AI analysis failed. Please check your AI API key or try again later.")

	// ErrAuthUserNotFound is returned when a valid token's subject no
	// longer resolves to a user.
	ErrAuthUserNotFound = errors.New("User not found")
)
