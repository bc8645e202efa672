package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

// FetchResults pages through a completed job's CSV results. Pages are requested
// one after another, following Sforce-Locator until it is absent or "null".
//
// Failure on the first page is a FetchError. Failure after at least one page is
// a PartialResultError: the caller never sees a truncated row set.
func (c *Client) FetchResults(ctx context.Context, jobID string) ([]core.FileMetadataRow, error) {
	var (
		rows    []core.FileMetadataRow
		locator string
		pages   int
	)

	for {
		page, next, err := c.fetchPage(ctx, jobID, locator)
		if err != nil {
			if pages == 0 {
				var fetchErr *core.FetchError
				if errors.As(err, &fetchErr) {
					return nil, err
				}
				return nil, &core.FetchError{Stage: "results", JobID: jobID, Err: err}
			}
			return nil, &core.PartialResultError{
				JobID:   jobID,
				Pages:   pages,
				Rows:    len(rows),
				Locator: locator,
				Err:     err,
			}
		}

		pages++
		rows = append(rows, page...)
		c.Logger.Debug("bulk result page", "job_id", jobID, "page", pages, "rows", len(page), "total", len(rows))

		if next == "" || strings.EqualFold(next, "null") {
			break
		}
		locator = next
	}

	c.Logger.Info("bulk results downloaded", "job_id", jobID, "pages", pages, "rows", len(rows))
	return rows, nil
}

func (c *Client) fetchPage(ctx context.Context, jobID, locator string) ([]core.FileMetadataRow, string, error) {
	params := url.Values{}
	params.Set("maxRecords", strconv.Itoa(c.PageSize))
	if locator != "" {
		params.Set("locator", locator)
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.jobsURL()+"/"+jobID+"/results?"+params.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, "", &core.FetchError{Stage: "results", JobID: jobID, Status: resp.StatusCode, Body: readBody(resp)}
	}

	rows, err := ParsePage(resp.Body)
	if err != nil {
		return nil, "", err
	}

	if declared := resp.Header.Get(headerNumRecords); declared != "" {
		if n, err := strconv.Atoi(declared); err == nil && n != len(rows) {
			return nil, "", fmt.Errorf("page declared %d records but contained %d", n, len(rows))
		}
	}

	return rows, resp.Header.Get(headerLocator), nil
}

// ParsePage decodes one CSV result page. Columns are matched by header name so
// field order in the response does not matter. An empty body is an empty page.
func ParsePage(r io.Reader) ([]core.FileMetadataRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read result header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	if _, ok := index[core.ColContentDocumentID]; !ok {
		return nil, fmt.Errorf("result page has no %s column", core.ColContentDocumentID)
	}

	get := func(record []string, col string) string {
		if i, ok := index[col]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	var rows []core.FileMetadataRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read result row %d: %w", len(rows)+1, err)
		}

		rows = append(rows, core.FileMetadataRow{
			ContentDocumentID: get(record, core.ColContentDocumentID),
			Title:             get(record, core.ColTitle),
			FileType:          get(record, core.ColFileType),
			FileExtension:     get(record, core.ColFileExtension),
			ContentSize:       get(record, core.ColContentSize),
			CreatedDate:       get(record, core.ColCreatedDate),
			CreatedByID:       get(record, core.ColCreatedByID),
			CreatedByName:     get(record, core.ColCreatedByName),
			LastModifiedDate:  get(record, core.ColLastModifiedDate),
			OwnerID:           get(record, core.ColOwnerID),
		})
	}
	return rows, nil
}

// FetchAll runs the full latest-version metadata export: create, wait, page.
// An empty result is reported as a FetchError since it almost always means the
// running user lacks visibility of the files.
func (c *Client) FetchAll(ctx context.Context) ([]core.FileMetadataRow, error) {
	soql := ContentVersionSOQL()

	jobID, err := c.CreateJob(ctx, soql)
	if err != nil {
		return nil, err
	}

	info, err := c.WaitJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	rows, err := c.FetchResults(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if info.NumberRecordsProcessed != nil && *info.NumberRecordsProcessed != int64(len(rows)) {
		return nil, &core.PartialResultError{
			JobID: jobID,
			Rows:  len(rows),
			Err:   fmt.Errorf("job processed %d records but %d were retrieved", *info.NumberRecordsProcessed, len(rows)),
		}
	}

	if len(rows) == 0 {
		return nil, &core.FetchError{
			Stage: "results",
			JobID: jobID,
			Err:   errors.New("no ContentVersion rows returned (permissions? Query All Files?)"),
		}
	}
	return rows, nil
}
