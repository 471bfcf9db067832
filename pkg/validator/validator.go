package validator

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
)

const (
	minEmailLength       = 3
	maxEmailLength       = 255
	maxSharePasswordLen  = 72
	maxRecipientNameLen  = 255
	maxFileNameLen       = 255
	maxContentTypeLen    = 255
	maxFolderPathLen     = 1024
	asciiControlStart    = 32
	asciiDelete          = 127
	imageMediaTypePrefix = "image/"

	errEmailEmptyFmt             = "email cannot be empty"
	errEmailLengthFmt            = "email must be between %d and %d characters"
	errEmailInvalidFmt           = "invalid email format"
	errSharePasswordEmptyFmt     = "password cannot be empty"
	errSharePasswordMaxLengthFmt = "password must not exceed %d bytes"
	errRecipientNameMaxLengthFmt = "recipient name must not exceed %d characters"
	errRecipientNameControlFmt   = "recipient name cannot contain control characters"
	errFileNameEmptyFmt          = "file name cannot be empty"
	errFileNameMaxLengthFmt      = "file name must not exceed %d characters"
	errFileNamePathSepFmt        = "file name cannot contain path separators"
	errFileNameControlCharsFmt   = "file name cannot contain control characters"
	errContentTypeMaxLengthFmt   = "content type must not exceed %d characters"
	errContentTypeInvalidFmt     = "invalid content type"
	errContentTypeNotImageFmt    = "content type %q is not an image"
	errFolderPathMaxLengthFmt    = "folder path must not exceed %d characters"
	errFolderPathBackslashFmt    = "folder path cannot contain backslashes"
	errFolderPathEmptySegFmt     = "folder path contains empty segment"
	errFolderPathTraversalFmt    = "folder path cannot contain path traversal"
	errFolderPathControlCharsFmt = "folder path cannot contain control characters"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func Email(email string) error {
	if email == "" {
		return fmt.Errorf(errEmailEmptyFmt)
	}

	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return fmt.Errorf(errEmailLengthFmt, minEmailLength, maxEmailLength)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf(errEmailInvalidFmt)
	}

	return nil
}

// SharePassword accepts anything bcrypt can hash without truncation.
func SharePassword(password string) error {
	if password == "" {
		return fmt.Errorf(errSharePasswordEmptyFmt)
	}

	if len(password) > maxSharePasswordLen {
		return fmt.Errorf(errSharePasswordMaxLengthFmt, maxSharePasswordLen)
	}

	return nil
}

func RecipientName(name string) error {
	if len(name) > maxRecipientNameLen {
		return fmt.Errorf(errRecipientNameMaxLengthFmt, maxRecipientNameLen)
	}

	for _, char := range name {
		if char < asciiControlStart || char == asciiDelete {
			return fmt.Errorf(errRecipientNameControlFmt)
		}
	}

	return nil
}

func FileName(name string) error {
	if name == "" {
		return fmt.Errorf(errFileNameEmptyFmt)
	}

	if len(name) > maxFileNameLen {
		return fmt.Errorf(errFileNameMaxLengthFmt, maxFileNameLen)
	}

	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf(errFileNamePathSepFmt)
	}

	for _, char := range name {
		if char < asciiControlStart || char == asciiDelete {
			return fmt.Errorf(errFileNameControlCharsFmt)
		}
	}

	return nil
}

// FolderPath validates a relative, slash-separated storage folder.
func FolderPath(path string) error {
	if path == "" {
		return nil
	}

	if len(path) > maxFolderPathLen {
		return fmt.Errorf(errFolderPathMaxLengthFmt, maxFolderPathLen)
	}

	if strings.Contains(path, "\\") {
		return fmt.Errorf(errFolderPathBackslashFmt)
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, seg := range segments {
		if seg == "" {
			return fmt.Errorf(errFolderPathEmptySegFmt)
		}
		if seg == ".." || seg == "." {
			return fmt.Errorf(errFolderPathTraversalFmt)
		}
		for _, char := range seg {
			if char < asciiControlStart || char == asciiDelete {
				return fmt.Errorf(errFolderPathControlCharsFmt)
			}
		}
	}

	return nil
}

// ImageContentType allows an empty value; the decoder has the final say.
func ImageContentType(contentType string) error {
	if contentType == "" {
		return nil
	}

	if len(contentType) > maxContentTypeLen {
		return fmt.Errorf(errContentTypeMaxLengthFmt, maxContentTypeLen)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf(errContentTypeInvalidFmt)
	}

	if !strings.HasPrefix(mediaType, imageMediaTypePrefix) && mediaType != "application/octet-stream" {
		return fmt.Errorf(errContentTypeNotImageFmt, mediaType)
	}

	return nil
}
