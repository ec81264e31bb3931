// Package analysis turns supplier call transcripts into structured
// quotation records. Five independent extractions (quotation, sentiment,
// meeting request, comparison metrics, key points) run concurrently against
// the model; a single precedence rule then classifies the call.
package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/procuroid/procurement-engine/internal/config"
	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/pkg/anthropic"
)

// Classifier analyzes call transcripts with an Anthropic model.
type Classifier struct {
	ai                  anthropic.Client
	model               string
	confidenceThreshold int
	defaultCurrency     string
}

// NewClassifier creates a transcript classifier.
func NewClassifier(ai anthropic.Client, aiCfg config.AnthropicConfig, exCfg config.ExtractionConfig) *Classifier {
	threshold := exCfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 60
	}
	currency := exCfg.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}
	return &Classifier{
		ai:                  ai,
		model:               aiCfg.Model,
		confidenceThreshold: threshold,
		defaultCurrency:     currency,
	}
}

// Classify analyzes one call transcript and produces a quotation record.
// Sub-extraction failures never fail the whole classification: each falls
// back to its neutral default and the call still classifies. Only an
// unusable (empty) transcript yields an error-typed record.
func (c *Classifier) Classify(ctx context.Context, transcript model.CallTranscript, req model.ProcurementRequest) *model.QuotationRecord {
	now := time.Now().UTC()
	record := &model.QuotationRecord{
		WorkflowID:   transcript.WorkflowID,
		SupplierID:   transcript.SupplierID,
		SupplierName: transcript.SupplierName,
		CallID:       transcript.CallID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if transcript.IsEmpty() {
		record.ResponseType = model.ResponseError
		record.Reason = "no transcript or summary captured for call"
		return record
	}

	if len(transcript.Turns) > 0 {
		record.ExtractionMethod = model.ExtractionTranscriptAnalysis
	} else {
		record.ExtractionMethod = model.ExtractionSummaryConclusion
	}

	var (
		quotation = noQuotation()
		sentiment = neutralSentiment()
		meeting   = noMeeting()
		metrics   = neutralMetrics()
		keyPoints []string
	)

	// Run the five extractions concurrently. Each logs and degrades on
	// failure instead of failing the group.
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q, err := c.extractQuotation(gCtx, transcript)
		if err != nil {
			zap.L().Warn("analysis: quotation extraction failed",
				zap.String("call_id", transcript.CallID),
				zap.Error(err),
			)
			return nil
		}
		quotation = q
		return nil
	})

	g.Go(func() error {
		s, err := c.extractSentiment(gCtx, transcript)
		if err != nil {
			zap.L().Warn("analysis: sentiment extraction failed",
				zap.String("call_id", transcript.CallID),
				zap.Error(err),
			)
			return nil
		}
		sentiment = s
		return nil
	})

	g.Go(func() error {
		m, err := c.extractMeeting(gCtx, transcript)
		if err != nil {
			zap.L().Warn("analysis: meeting detection failed",
				zap.String("call_id", transcript.CallID),
				zap.Error(err),
			)
			return nil
		}
		meeting = m
		return nil
	})

	g.Go(func() error {
		m, err := c.extractMetrics(gCtx, transcript, req)
		if err != nil {
			zap.L().Warn("analysis: comparison scoring failed",
				zap.String("call_id", transcript.CallID),
				zap.Error(err),
			)
			return nil
		}
		metrics = m
		return nil
	})

	g.Go(func() error {
		kp, err := c.extractKeyPoints(gCtx, transcript.Text())
		if err != nil {
			zap.L().Warn("analysis: key point extraction failed",
				zap.String("call_id", transcript.CallID),
				zap.Error(err),
			)
			return nil
		}
		keyPoints = kp
		return nil
	})

	_ = g.Wait()

	record.ResponseType = classify(quotation, meeting, c.confidenceThreshold)
	record.Sentiment = model.ClampSentiment(sentiment.Enthusiasm)
	record.Confidence = quotation.Fields.Confidence
	record.KeyPoints = keyPoints
	record.Metrics = &metrics

	switch record.ResponseType {
	case model.ResponseQuotationReceived:
		record.Quotation = quotation.Fields
	case model.ResponseMeetingRequested:
		record.Meeting = &meeting
		record.Reason = meeting.Reason
		// Keep any partial pricing the supplier mentioned before asking
		// to meet.
		if quotation.HasQuotation {
			record.Quotation = quotation.Fields
		}
	case model.ResponseDeclined:
		record.Reason = declineReason(sentiment)
	case model.ResponseUnclear:
		if quotation.HasQuotation {
			record.Quotation = quotation.Fields
		}
		record.Reason = "response did not contain a confident quotation, decline, or meeting request"
	}

	zap.L().Info("analysis: call classified",
		zap.String("call_id", transcript.CallID),
		zap.String("supplier_id", transcript.SupplierID),
		zap.String("response_type", string(record.ResponseType)),
		zap.Int("confidence", record.Confidence),
		zap.String("extraction_method", record.ExtractionMethod),
	)

	return record
}

// classify applies the precedence rule: a confident quotation wins over a
// meeting request, which wins over an explicit decline, and anything else is
// unclear.
func classify(q quotationResult, meeting model.MeetingInfo, threshold int) model.ResponseType {
	switch {
	case q.HasQuotation && q.Fields.Confidence > threshold:
		return model.ResponseQuotationReceived
	case meeting.Requested:
		return model.ResponseMeetingRequested
	case q.Fields.CanFulfill != nil && !*q.Fields.CanFulfill:
		return model.ResponseDeclined
	default:
		return model.ResponseUnclear
	}
}

func declineReason(sentiment model.SentimentResult) string {
	if len(sentiment.Concerns) > 0 {
		return sentiment.Concerns[0]
	}
	if sentiment.Summary != "" {
		return sentiment.Summary
	}
	return "supplier indicated they cannot fulfill the request"
}
