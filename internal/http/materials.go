package http

import (
	"errors"
	"net/http"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/media"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/repository"
)

type materialResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Material model.Material `json:"material"`
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.store.ListMaterials(r.Context())
	if err != nil {
		s.serverError(w, r, "list_materials", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "materials": materials})
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid material id")
		return
	}
	material, err := s.store.GetMaterial(r.Context(), id)
	if err != nil {
		s.materialError(w, r, "get_material", err)
		return
	}
	writeJSON(w, http.StatusOK, materialResponse{Success: true, Material: material})
}

func (s *Server) handleAddMaterial(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	title, _ := formValue(r, "title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "missing_title", "Title is required")
		return
	}
	material := model.Material{Title: title}
	if description, ok := formValue(r, "description"); ok && description != "" {
		material.Description = &description
	}

	fileURL, ok := s.materialFile(w, r)
	if !ok {
		return
	}
	material.File = fileURL

	created, err := s.store.CreateMaterial(r.Context(), material)
	if err != nil {
		s.serverError(w, r, "add_material", err)
		return
	}
	writeJSON(w, http.StatusCreated, materialResponse{Success: true, Message: "Material added successfully", Material: created})
}

func (s *Server) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid material id")
		return
	}
	if !s.parseForm(w, r) {
		return
	}
	material, err := s.store.GetMaterial(r.Context(), id)
	if err != nil {
		s.materialError(w, r, "update_material.get", err)
		return
	}

	if title, ok := formValue(r, "title"); ok {
		if title == "" {
			writeError(w, http.StatusBadRequest, "missing_title", "Title is required")
			return
		}
		material.Title = title
	}
	if description, ok := formValue(r, "description"); ok {
		if description == "" {
			material.Description = nil
		} else {
			material.Description = &description
		}
	}
	fileURL, ok := s.materialFile(w, r)
	if !ok {
		return
	}
	if fileURL != nil {
		material.File = fileURL
	}

	updated, err := s.store.UpdateMaterial(r.Context(), material)
	if err != nil {
		s.materialError(w, r, "update_material.save", err)
		return
	}
	writeJSON(w, http.StatusOK, materialResponse{Success: true, Message: "Material updated successfully", Material: updated})
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid material id")
		return
	}
	if err := s.store.DeleteMaterial(r.Context(), id); err != nil {
		s.materialError(w, r, "delete_material", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Material deleted successfully"})
}

// materialFile validates and uploads the optional file part. It returns a
// nil URL when no file was sent.
func (s *Server) materialFile(w http.ResponseWriter, r *http.Request) (*string, bool) {
	headers := formFiles(r, "file")
	if len(headers) == 0 {
		return nil, true
	}
	file, err := readUpload(headers[0])
	if err != nil {
		s.serverError(w, r, "material_file.read", err)
		return nil, false
	}

	kind := media.KindFile
	switch {
	case media.IsImage(file.ContentType):
		kind = media.KindImage
	case media.IsPDF(file.ContentType):
	default:
		unsupportedFile(w, "image or PDF")
		return nil, false
	}

	url, err := s.upload(r.Context(), kind, file)
	if err != nil {
		s.serverError(w, r, "material_file.upload", err)
		return nil, false
	}
	return &url, true
}

func (s *Server) materialError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "material_not_found", "Material not found")
		return
	}
	s.serverError(w, r, op, err)
}
