package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second
	applicationName       = "gallery-service"

	errGalleryNotFound    = "gallery not found"
	errPhotoNotFound      = "photo not found"
	errShareLinkNotFound  = "share link not found"
	errInvitationNotFound = "invitation not found"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedMigrateFmt              = "failed to apply migration %d: %w"

	errFailedGetGalleryFmt = "failed to get gallery: %w"

	errFailedCreatePhotoFmt = "failed to create photo: %w"
	errFailedGetPhotoFmt    = "failed to get photo: %w"
	errFailedListPhotosFmt  = "failed to list photos: %w"
	errFailedScanPhotoFmt   = "failed to scan photo: %w"
	errFailedEncodePhotoFmt = "failed to encode photo variants: %w"

	errFailedCreateShareLinkFmt     = "failed to create share link: %w"
	errFailedGetShareLinkFmt        = "failed to get share link: %w"
	errFailedGetShareLinkByTokenFmt = "failed to get share link by token: %w"
	errFailedCheckShareTokenFmt     = "failed to check share token: %w"
	errFailedListShareLinksFmt      = "failed to list share links: %w"
	errFailedScanShareLinkFmt       = "failed to scan share link: %w"
	errFailedUpdateShareLinkFmt     = "failed to update share link: %w"
	errFailedDeleteShareLinkFmt     = "failed to delete share link: %w"
	errFailedRecordShareAccessFmt   = "failed to record share access: %w"

	errFailedCreateInvitationFmt     = "failed to create invitation: %w"
	errFailedGetInvitationFmt        = "failed to get invitation: %w"
	errFailedGetInvitationByCodeFmt  = "failed to get invitation by code: %w"
	errFailedCheckInvitationCodeFmt  = "failed to check invitation code: %w"
	errFailedListInvitationsFmt      = "failed to list invitations: %w"
	errFailedScanInvitationFmt       = "failed to scan invitation: %w"
	errFailedUpdateInvitationFmt     = "failed to update invitation: %w"
	errFailedDeleteInvitationFmt     = "failed to delete invitation: %w"
	errFailedRecordInvitationUseFmt  = "failed to record invitation use: %w"
	errFailedEncodeAccessLogEntryFmt = "failed to encode access log entry: %w"
)

var (
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedMigrate              = func(version int, err error) error { return fmt.Errorf(errFailedMigrateFmt, version, err) }

	errFailedGetGallery = func(err error) error { return fmt.Errorf(errFailedGetGalleryFmt, err) }

	errFailedCreatePhoto = func(err error) error { return fmt.Errorf(errFailedCreatePhotoFmt, err) }
	errFailedGetPhoto    = func(err error) error { return fmt.Errorf(errFailedGetPhotoFmt, err) }
	errFailedListPhotos  = func(err error) error { return fmt.Errorf(errFailedListPhotosFmt, err) }
	errFailedScanPhoto   = func(err error) error { return fmt.Errorf(errFailedScanPhotoFmt, err) }
	errFailedEncodePhoto = func(err error) error { return fmt.Errorf(errFailedEncodePhotoFmt, err) }

	errFailedCreateShareLink     = func(err error) error { return fmt.Errorf(errFailedCreateShareLinkFmt, err) }
	errFailedGetShareLink        = func(err error) error { return fmt.Errorf(errFailedGetShareLinkFmt, err) }
	errFailedGetShareLinkByToken = func(err error) error { return fmt.Errorf(errFailedGetShareLinkByTokenFmt, err) }
	errFailedCheckShareToken     = func(err error) error { return fmt.Errorf(errFailedCheckShareTokenFmt, err) }
	errFailedListShareLinks      = func(err error) error { return fmt.Errorf(errFailedListShareLinksFmt, err) }
	errFailedScanShareLink       = func(err error) error { return fmt.Errorf(errFailedScanShareLinkFmt, err) }
	errFailedUpdateShareLink     = func(err error) error { return fmt.Errorf(errFailedUpdateShareLinkFmt, err) }
	errFailedDeleteShareLink     = func(err error) error { return fmt.Errorf(errFailedDeleteShareLinkFmt, err) }
	errFailedRecordShareAccess   = func(err error) error { return fmt.Errorf(errFailedRecordShareAccessFmt, err) }

	errFailedCreateInvitation     = func(err error) error { return fmt.Errorf(errFailedCreateInvitationFmt, err) }
	errFailedGetInvitation        = func(err error) error { return fmt.Errorf(errFailedGetInvitationFmt, err) }
	errFailedGetInvitationByCode  = func(err error) error { return fmt.Errorf(errFailedGetInvitationByCodeFmt, err) }
	errFailedCheckInvitationCode  = func(err error) error { return fmt.Errorf(errFailedCheckInvitationCodeFmt, err) }
	errFailedListInvitations      = func(err error) error { return fmt.Errorf(errFailedListInvitationsFmt, err) }
	errFailedScanInvitation       = func(err error) error { return fmt.Errorf(errFailedScanInvitationFmt, err) }
	errFailedUpdateInvitation     = func(err error) error { return fmt.Errorf(errFailedUpdateInvitationFmt, err) }
	errFailedDeleteInvitation     = func(err error) error { return fmt.Errorf(errFailedDeleteInvitationFmt, err) }
	errFailedRecordInvitationUse  = func(err error) error { return fmt.Errorf(errFailedRecordInvitationUseFmt, err) }
	errFailedEncodeAccessLogEntry = func(err error) error { return fmt.Errorf(errFailedEncodeAccessLogEntryFmt, err) }
)
