package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"neothink/internal/utils"
	"neothink/pkg/types"
)

const (
	maxAvatarBytes = 2 << 20
	maxBioRunes    = 500
)

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var update types.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeError(w, err)
		return
	}

	errs := map[string]string{}
	if update.FullName == nil && update.Username == nil && update.Bio == nil && update.Pathway == nil {
		errs["body"] = "Provide at least one field to update."
	}
	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		update.FullName = &name
		if name == "" {
			errs["full_name"] = "Full name cannot be empty."
		}
	}
	if update.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*update.Username))
		update.Username = &username
		validateUsername(errs, username)
	}
	if update.Bio != nil && utf8.RuneCountInString(*update.Bio) > maxBioRunes {
		errs["bio"] = fmt.Sprintf("Bio must be at most %d characters.", maxBioRunes)
	}
	if update.Pathway != nil && !update.Pathway.Valid() {
		errs["pathway"] = "Unknown pathway."
	}
	if len(errs) > 0 {
		s.writeError(w, &types.ValidationError{Fields: errs})
		return
	}

	if update.Username != nil {
		taken, err := s.profiles.UsernameTaken(ctx, *update.Username, userID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if taken {
			s.writeError(w, types.ErrUsernameTaken())
			return
		}
	}

	profile, err := s.profiles.Update(ctx, userID, &update)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handlePostAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+(64<<10))
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		s.writeError(w, types.NewValidationError("avatar", "Upload must be a multipart form no larger than 2 MiB."))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		s.writeError(w, types.NewValidationError("avatar", "An avatar file is required."))
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		s.writeError(w, types.NewValidationError("avatar", "Avatar must be 2 MiB or smaller."))
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.writeError(w, types.NewValidationError("avatar", "Unable to read the uploaded file."))
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		s.writeError(w, types.NewValidationError("avatar", "Avatar must be a PNG, JPEG or WebP image."))
		return
	}

	key := fmt.Sprintf("%s/%s%s", userID, utils.NanoID(), ext)
	body := io.MultiReader(bytes.NewReader(head), file)

	if _, err := s.avatars.UploadFile(ctx, key, body, header.Size, contentType); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to upload avatar")
		s.internalServerError(w)
		return
	}

	previous, err := s.profiles.Profile(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrProfileNotFound) {
		s.writeError(w, err)
		return
	}

	avatarURL := s.avatars.PublicURL(key)
	profile, err := s.profiles.Update(ctx, userID, &types.ProfileUpdate{AvatarURL: &avatarURL})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if previous != nil && previous.AvatarURL != nil {
		s.removeAvatar(r, userID, *previous.AvatarURL)
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.profiles.DeleteAccount(ctx, userID); err != nil {
		s.writeError(w, err)
		return
	}

	if profile.AvatarURL != nil {
		s.removeAvatar(r, userID, *profile.AvatarURL)
	}

	s.logger.WithField("user_id", userID).Info("account deleted")

	s.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// removeAvatar deletes an avatar object we own. Failures are only logged.
func (s *Service) removeAvatar(r *http.Request, userID, avatarURL string) {
	key, ok := s.avatars.KeyFromURL(avatarURL)
	if !ok || !strings.HasPrefix(key, userID+"/") {
		return
	}

	if err := s.avatars.DeleteFile(r.Context(), key); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to delete previous avatar")
	}
}
