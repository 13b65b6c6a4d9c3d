package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/media"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/repository"
)

const maxOtherPics = 5

type createOrgRequest struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   string  `json:"phone"`
	Email   string  `json:"email"`
	Website string  `json:"website"`
	Details *string `json:"details"`
}

type orgResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Org     model.Org `json:"org"`
}

func (s *Server) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.store.ListOrgs(r.Context())
	if err != nil {
		s.serverError(w, r, "list_orgs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "All organizations",
		"orgs":    orgs,
	})
}

func (s *Server) handleMyOrg(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		s.serverError(w, r, "my_org.get_user", err)
		return
	}
	if user.OrgID == nil {
		writeError(w, http.StatusNotFound, "org_not_found", "Organization not found")
		return
	}
	org, err := s.store.GetOrg(r.Context(), *user.OrgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "org_not_found", "Organization not found")
			return
		}
		s.serverError(w, r, "my_org.get_org", err)
		return
	}
	writeJSON(w, http.StatusOK, orgResponse{Success: true, Message: "Organization", Org: org})
}

func (s *Server) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "Organization name is required")
		return
	}

	org, err := s.store.CreateOrg(r.Context(), model.Org{
		Name:    req.Name,
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   normalizeEmail(req.Email),
		Website: strings.TrimSpace(req.Website),
		Details: req.Details,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusBadRequest, "org_exists", "Organization already exists")
			return
		}
		s.serverError(w, r, "create_org", err)
		return
	}
	writeJSON(w, http.StatusCreated, orgResponse{Success: true, Message: "Organization created successfully", Org: org})
}

type orgSetter func(ctx context.Context, id int64, url string) (model.Org, error)

func (s *Server) handleAddLogo(w http.ResponseWriter, r *http.Request) {
	s.setOrgMedia(w, r, "logo", media.KindImage, s.store.SetOrgLogo, "Logo added successfully")
}

func (s *Server) handleAddMainPic(w http.ResponseWriter, r *http.Request) {
	s.setOrgMedia(w, r, "mainPic", media.KindImage, s.store.SetOrgMainPic, "Main picture added successfully")
}

func (s *Server) handleAddOrgVideo(w http.ResponseWriter, r *http.Request) {
	s.setOrgMedia(w, r, "orgsVideo", media.KindVideo, s.store.SetOrgVideo, "Video added successfully")
}

// setOrgMedia uploads the single file in field and stores its URL on the org.
func (s *Server) setOrgMedia(w http.ResponseWriter, r *http.Request, field string, kind media.Kind, set orgSetter, message string) {
	if !s.parseForm(w, r) {
		return
	}
	orgID, ok := s.formOrgID(w, r)
	if !ok {
		return
	}
	headers := formFiles(r, field)
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "missing_file", "File "+field+" is required")
		return
	}
	file, err := readUpload(headers[0])
	if err != nil {
		s.serverError(w, r, "org_media.read", err)
		return
	}
	if kind == media.KindVideo && !media.IsVideo(file.ContentType) {
		unsupportedFile(w, "video")
		return
	}
	if kind == media.KindImage && !media.IsImage(file.ContentType) {
		unsupportedFile(w, "image")
		return
	}
	if !s.orgExists(w, r, orgID) {
		return
	}

	url, err := s.upload(r.Context(), kind, file)
	if err != nil {
		s.serverError(w, r, "org_media.upload", err)
		return
	}
	org, err := set(r.Context(), orgID, url)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "org_not_found", "Organization not found")
			return
		}
		s.serverError(w, r, "org_media.save", err)
		return
	}
	writeJSON(w, http.StatusOK, orgResponse{Success: true, Message: message, Org: org})
}

func (s *Server) handleAddOtherPics(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	orgID, ok := s.formOrgID(w, r)
	if !ok {
		return
	}
	headers := formFiles(r, "otherPics", "otherPics[]")
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "missing_file", "At least one picture is required")
		return
	}
	if len(headers) > maxOtherPics {
		writeError(w, http.StatusBadRequest, "too_many_files", "At most 5 pictures can be uploaded at once")
		return
	}

	files := make([]media.File, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header)
		if err != nil {
			s.serverError(w, r, "other_pics.read", err)
			return
		}
		if !media.IsImage(file.ContentType) {
			unsupportedFile(w, "image")
			return
		}
		files = append(files, file)
	}
	if !s.orgExists(w, r, orgID) {
		return
	}

	urls := make([]string, 0, len(files))
	for _, file := range files {
		url, err := s.upload(r.Context(), media.KindImage, file)
		if err != nil {
			s.serverError(w, r, "other_pics.upload", err)
			return
		}
		urls = append(urls, url)
	}
	org, err := s.store.AppendOrgOtherPics(r.Context(), orgID, urls)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "org_not_found", "Organization not found")
			return
		}
		s.serverError(w, r, "other_pics.save", err)
		return
	}
	writeJSON(w, http.StatusOK, orgResponse{Success: true, Message: "Images added successfully", Org: org})
}

func (s *Server) handleDeleteOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid organization id")
		return
	}
	if err := s.store.DeleteOrg(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "org_not_found", "Organization not found")
			return
		}
		s.serverError(w, r, "delete_org", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Organization deleted successfully"})
}

func (s *Server) formOrgID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	value, ok := formValue(r, "orgId")
	if !ok || value == "" {
		writeError(w, http.StatusBadRequest, "missing_org_id", "Organization is required")
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid organization id")
		return 0, false
	}
	return id, true
}

// orgExists runs before any upload so a missing org costs no storage call.
func (s *Server) orgExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	if _, err := s.store.GetOrg(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "org_not_found", "Organization not found")
			return false
		}
		s.serverError(w, r, "org_exists", err)
		return false
	}
	return true
}
