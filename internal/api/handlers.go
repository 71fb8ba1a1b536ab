package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/domain"
)

// harmonizeRequest is the request body for POST /api/v1/harmonize.
type harmonizeRequest struct {
	Dataset string                   `json:"dataset" binding:"required"`
	Columns []string                 `json:"columns" binding:"required"`
	Rows    []map[string]interface{} `json:"rows" binding:"required"`
	Mapping map[string]string        `json:"mapping"`
}

// harmonizeResponse is the response body for POST /api/v1/harmonize.
type harmonizeResponse struct {
	Dataset string                   `json:"dataset"`
	Columns []string                 `json:"columns"`
	Records []map[string]interface{} `json:"records"`
	Report  *domain.LoadReport       `json:"report"`
}

func (r *harmonizeRequest) toTable() *domain.Table {
	table := domain.NewTable(r.Columns...)
	for _, raw := range r.Rows {
		row := make(domain.Row, len(raw))
		for column, cell := range raw {
			row[column] = domain.ValueOf(cell)
		}
		table.Append(row)
	}
	return table
}

func (r *harmonizeRequest) toMapping() domain.ColumnMapping {
	if len(r.Mapping) == 0 {
		return nil
	}
	mapping := make(domain.ColumnMapping, len(r.Mapping))
	for field, column := range r.Mapping {
		mapping[domain.FieldRole(field)] = column
	}
	return mapping
}

func tableRecords(table *domain.Table) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, table.Len())
	for _, row := range table.Rows {
		record := make(map[string]interface{}, len(table.Columns))
		for _, column := range table.Columns {
			record[column] = row.Get(column).Interface()
		}
		records = append(records, record)
	}
	return records
}

// handleHarmonize harmonizes one uploaded table synchronously.
func (s *Server) handleHarmonize(c *gin.Context) {
	var req harmonizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}

	table := req.toTable()
	harmonized, report, err := s.loader.LoadAndHarmonize(c.Request.Context(), req.Dataset, table, req.toMapping())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"dataset": req.Dataset,
			"error":   err,
		}).Warn("Harmonization request failed")
		s.writeError(c, err)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReport(c.Request.Context(), report); err != nil {
			s.log.WithError(err).Warn("Failed to publish load report")
		}
	}

	c.JSON(http.StatusOK, harmonizeResponse{
		Dataset: req.Dataset,
		Columns: harmonized.Columns,
		Records: tableRecords(harmonized),
		Report:  report,
	})
}

// handleListDatasets lists registered pipeline datasets.
func (s *Server) handleListDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"datasets": s.pipeline.Datasets(),
	})
}

// handleGetReport returns the latest load report for one dataset.
func (s *Server) handleGetReport(c *gin.Context) {
	if s.publisher == nil {
		s.writeError(c, domain.ErrDatasetNotFound)
		return
	}

	report, err := s.publisher.GetReport(c.Request.Context(), c.Param("dataset"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleGetStatistics returns the latest pipeline statistics.
func (s *Server) handleGetStatistics(c *gin.Context) {
	if s.publisher == nil {
		s.writeError(c, domain.ErrDatasetNotFound)
		return
	}

	stats, err := s.publisher.GetStatistics(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleGetRecord fetches one persisted canonical record by image_id.
func (s *Server) handleGetRecord(c *gin.Context) {
	if s.repository == nil {
		s.writeError(c, domain.ErrRecordNotFound)
		return
	}

	record, err := s.repository.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// handleListRecords pages through persisted records of one dataset.
func (s *Server) handleListRecords(c *gin.Context) {
	if s.repository == nil {
		s.writeError(c, domain.ErrRecordNotFound)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		s.writeError(c, domain.NewValidationError("limit", "must be an integer between 1 and 1000"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.writeError(c, domain.NewValidationError("offset", "must be a non-negative integer"))
		return
	}

	dataset := c.Param("dataset")
	records, err := s.repository.GetByDataset(c.Request.Context(), dataset, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dataset": dataset,
		"count":   len(records),
		"records": records,
	})
}

// handleDeleteRecord removes one persisted record by image_id.
func (s *Server) handleDeleteRecord(c *gin.Context) {
	if s.repository == nil {
		s.writeError(c, domain.ErrRecordNotFound)
		return
	}

	if err := s.repository.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handlePipelineRun runs all registered datasets, persists the merged output
// when a repository is configured, and returns run statistics.
func (s *Server) handlePipelineRun(c *gin.Context) {
	started := time.Now()

	tables, reports, err := s.pipeline.HarmonizeAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	stats := s.pipeline.Statistics(tables, reports)

	persisted := 0
	if s.repository != nil {
		merged := s.pipeline.MergeAll(tables)
		records := make([]*domain.CanonicalRecord, 0, merged.Len())
		for i, row := range merged.Rows {
			record, err := domain.RecordFromRow(row)
			if err != nil {
				s.log.WithFields(logrus.Fields{
					"row":   i,
					"error": err,
				}).Warn("Skipping undecodable merged row")
				continue
			}
			records = append(records, record)
		}

		persisted, err = s.repository.BatchInsert(c.Request.Context(), records)
		if err != nil {
			s.writeError(c, err)
			return
		}
	}

	if s.publisher != nil {
		for _, report := range reports {
			if err := s.publisher.PublishReport(c.Request.Context(), report); err != nil {
				s.log.WithError(err).Warn("Failed to publish load report")
			}
		}
		if err := s.publisher.PublishStatistics(c.Request.Context(), stats); err != nil {
			s.log.WithError(err).Warn("Failed to publish pipeline statistics")
		}
	}

	s.log.WithFields(logrus.Fields{
		"run_id":   stats.RunID,
		"datasets": stats.DatasetCount,
		"records":  stats.TotalRecords,
		"duration": time.Since(started).String(),
	}).Info("Pipeline run completed")

	c.JSON(http.StatusOK, gin.H{
		"statistics": stats,
		"reports":    reports,
		"persisted":  persisted,
	})
}
