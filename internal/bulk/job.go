package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/leapstack-labs/docjoin/pkg/core"
)

// ContentVersionSOQL returns the compacted query for latest-version file metadata
// across the whole org.
func ContentVersionSOQL() string {
	soql := `
	SELECT
	  ContentDocumentId,
	  Title,
	  FileType,
	  FileExtension,
	  ContentSize,
	  CreatedDate,
	  CreatedById,
	  CreatedBy.Name,
	  LastModifiedDate,
	  OwnerId
	FROM ContentVersion
	WHERE IsLatest = true
	`
	return strings.Join(strings.Fields(soql), " ")
}

// CreateJob submits a query job and returns its id.
func (c *Client) CreateJob(ctx context.Context, soql string) (string, error) {
	payload, err := c.marshalJob(soql)
	if err != nil {
		return "", &core.FetchError{Stage: "create", Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.jobsURL(), bytes.NewReader(payload))
	if err != nil {
		return "", &core.FetchError{Stage: "create", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &core.FetchError{Stage: "create", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", &core.FetchError{
			Stage:  "create",
			Status: resp.StatusCode,
			Body:   readBody(resp) + "\nSOQL:\n" + soql,
		}
	}

	var info JobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", &core.FetchError{Stage: "create", Status: resp.StatusCode, Err: fmt.Errorf("decode job: %w", err)}
	}
	if info.ID == "" {
		return "", &core.FetchError{Stage: "create", Status: resp.StatusCode, Err: errors.New("response carried no job id")}
	}

	c.Logger.Info("bulk query job created", "job_id", info.ID, "state", info.State)
	return info.ID, nil
}

// JobStatus fetches the current job resource.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.jobsURL()+"/"+jobID, nil)
	if err != nil {
		return nil, &core.FetchError{Stage: "poll", JobID: jobID, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &core.FetchError{Stage: "poll", JobID: jobID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &core.FetchError{Stage: "poll", JobID: jobID, Status: resp.StatusCode, Body: readBody(resp)}
	}

	var info JobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &core.FetchError{Stage: "poll", JobID: jobID, Err: fmt.Errorf("decode job: %w", err)}
	}
	return &info, nil
}

// WaitJob polls until the job reaches a terminal state. JobComplete returns the
// final job info; Failed and Aborted return a FetchError.
func (c *Client) WaitJob(ctx context.Context, jobID string) (*JobInfo, error) {
	polls := 0
	for {
		info, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		polls++

		switch info.State {
		case StateJobComplete:
			c.Logger.Info("bulk query job complete", "job_id", jobID, "polls", polls)
			return info, nil
		case StateFailed, StateAborted:
			msg := fmt.Sprintf("job ended in state %s", info.State)
			if info.ErrorMessage != "" {
				msg += ": " + info.ErrorMessage
			}
			return nil, &core.FetchError{Stage: "poll", JobID: jobID, Err: errors.New(msg)}
		}

		c.Logger.Debug("bulk query job pending", "job_id", jobID, "state", info.State)

		timer := time.NewTimer(c.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &core.FetchError{Stage: "poll", JobID: jobID, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}
