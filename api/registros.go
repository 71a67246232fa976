package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/repository"
	"github.com/huykn/inspector/service"
)

// registroFilters collects every registros column present in the query string.
func registroFilters(c *gin.Context) map[string]string {
	filters := make(map[string]string)
	for _, col := range models.RegistroColumns {
		if v, ok := c.GetQuery(col); ok && v != "" {
			filters[col] = v
		}
	}
	return filters
}

// listQuery is the paging part of GET /registros.
type listQuery struct {
	Limit   int    `form:"limit,default=10" binding:"min=1,max=100"`
	Offset  int    `form:"offset,default=0" binding:"min=0"`
	SortBy  string `form:"sort_by,default=id"`
	SortDir string `form:"sort_dir,default=asc" binding:"omitempty,oneof=asc desc ASC DESC"`
}

func (s *Server) listRegistros(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Parámetros de paginación no válidos: "+err.Error())
		return
	}

	regs, err := s.Queries.List(c.Request.Context(), repository.ListParams{
		Filters: registroFilters(c),
		SortBy:  q.SortBy,
		SortDir: q.SortDir,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, regs)
}

func (s *Server) countRegistros(c *gin.Context) {
	total, err := s.Queries.Count(c.Request.Context(), registroFilters(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (s *Server) uniqueValues(c *gin.Context) {
	col := c.Query("col")
	if col == "" {
		badRequest(c, "El parámetro 'col' es obligatorio")
		return
	}
	values, err := s.Queries.Distinct(c.Request.Context(), col, c.Query("search"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

func (s *Server) getRegistro(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := s.Queries.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) registroHistory(c *gin.Context) {
	numero, ok := pathID(c)
	if !ok {
		return
	}
	cambios, err := s.Queries.History(c.Request.Context(), numero)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cambios)
}

func (s *Server) createRegistro(c *gin.Context) {
	var r models.Registro
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "Cuerpo de la solicitud no válido: "+err.Error())
		return
	}
	r.ID = 0

	created, err := s.Registros.Create(c.Request.Context(), actor(c), r)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateRegistro(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch models.RegistroPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Cuerpo de la solicitud no válido: "+err.Error())
		return
	}

	updated, err := s.Registros.Update(c.Request.Context(), actor(c), id, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteRegistro(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Registros.Delete(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": fmt.Sprintf("Registro con ID=%d eliminado exitosamente", id)})
}

func (s *Server) exportRaw(c *gin.Context) {
	s.exportCSV(c, false, "registros.csv")
}

func (s *Server) exportLabelled(c *gin.Context) {
	s.exportCSV(c, true, "registros_exportados.csv")
}

func (s *Server) exportCSV(c *gin.Context, labelled bool, filename string) {
	regs, err := s.Queries.Export(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := service.WriteRegistrosCSV(&buf, regs, labelled); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// uploadCSV accepts the file either as the multipart field "file" (or "archivo")
// or as the raw request body.
func (s *Server) uploadCSV(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	n, err := s.Importer.Upload(c.Request.Context(), actor(c), data)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mensaje":    fmt.Sprintf("%d registros cargados correctamente", n),
		"insertados": n,
	})
}

func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	// One byte past the bound lets the importer report the oversize upload.
	limit := s.MaxUploadSize + 1

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("file")
		if err != nil {
			fh, err = c.FormFile("archivo")
		}
		if err != nil {
			return nil, errNoFile
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("No se pudo leer el archivo: %v", err)
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, limit))
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("No se pudo leer el archivo: %v", err)
	}
	if len(data) == 0 {
		return nil, errNoFile
	}
	return data, nil
}

func (s *Server) exportHistory(c *gin.Context) {
	cambios, err := s.Registros.HistoryExport(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=historial_cambios.json")
	c.JSON(http.StatusOK, cambios)
}

var errNoFile = errors.New("No se recibió ningún archivo")

// pathID parses the :id segment, rejecting the request when it is not a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Identificador no válido")
		return 0, false
	}
	return id, true
}
