// file: internal/server/provider_handlers.go
// version: 1.0.0
// guid: 0c7f2e1a-5b3d-4c8e-9a6f-1d2b3c4e5f60

package server

import (
	"context"
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

func (s *Server) listProviders(c *gin.Context) {
	defs, err := s.engine.Registry().All()
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	items := make([]models.ProviderDefinition, 0, len(defs))
	for _, def := range defs {
		items = append(items, maskProvider(def))
	}
	RespondWithOK(c, ListResponse{Items: items, Count: len(items)})
}

func (s *Server) getProvider(c *gin.Context) {
	def, err := s.engine.Registry().Get(c.Param("id"))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, maskProvider(*def))
}

func (s *Server) createProvider(c *gin.Context) {
	var req ProviderRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	saved, err := s.engine.SaveProvider(req.Definition(models.ProviderDefinition{}))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithCreated(c, maskProvider(*saved))
}

func (s *Server) updateProvider(c *gin.Context) {
	existing, err := s.engine.Registry().Get(c.Param("id"))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	var req ProviderRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	saved, err := s.engine.SaveProvider(req.Definition(*existing))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, maskProvider(*saved))
}

func (s *Server) deleteProvider(c *gin.Context) {
	id := c.Param("id")
	if err := s.engine.DeleteProvider(id); err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, DeleteResponse{Deleted: true, ID: id})
}

// testProvider runs the connection test of a saved provider.
func (s *Server) testProvider(c *gin.Context) {
	def, err := s.engine.Registry().Get(c.Param("id"))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	s.respondWithTest(c, *def)
}

// testProviderDefinition runs the connection test of a definition that has
// not been saved yet.
func (s *Server) testProviderDefinition(c *gin.Context) {
	var req ProviderRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	base := models.ProviderDefinition{}
	if req.ID != "" {
		existing, err := s.engine.Registry().Get(req.ID)
		if err != nil {
			RespondWithErr(c, err)
			return
		}
		base = *existing
	}
	s.respondWithTest(c, req.Definition(base))
}

func (s *Server) respondWithTest(c *gin.Context, def models.ProviderDefinition) {
	err := s.engine.TestProvider(c.Request.Context(), def)
	switch {
	case err == nil:
		RespondWithOK(c, TestResult{Success: true})
	case errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil:
		RespondWithErr(c, err)
	default:
		class := metadata.Classify(err)
		log.Printf("[INFO] server: test of provider %q failed (%s): %v", def.Name, class, err)
		RespondWithOK(c, TestResult{Success: false, Class: class, Error: err.Error()})
	}
}

func (s *Server) getProviderHealth(c *gin.Context) {
	h, err := s.engine.Health(c.Param("id"))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, h)
}

func (s *Server) listProviderHealth(c *gin.Context) {
	all, err := s.engine.AllHealth()
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, ListResponse{Items: all, Count: len(all)})
}

func (s *Server) listCapabilities(c *gin.Context) {
	kinds := metadata.Kinds()
	items := make([]KindView, 0, len(kinds))
	for _, k := range kinds {
		items = append(items, KindView{Name: k.Name, DisplayName: k.DisplayName, Capabilities: k.Capabilities})
	}
	RespondWithOK(c, ListResponse{Items: items, Count: len(items)})
}
