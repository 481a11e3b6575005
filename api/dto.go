/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes for the HTTP surface, decoupled from the domain model.
  Dates travel as "2006-01-02" strings, times as "15:04"; day fractions
  are serialized as float64 at the boundary only (the engine computes
  with decimals).

NAMING CONVENTION:
  - *DTO: response types
  - *Request: request body types

SEE ALSO:
  - handlers.go: conversion and validation
*/
package api

import (
	"fmt"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateLeaveRequest registers a leave or holiday.
type CreateLeaveRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	LeaveType        string `json:"leave_type"`
	IsAllDay         bool   `json:"is_all_day"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	StartTime        string `json:"start_time,omitempty"`
	EndTime          string `json:"end_time,omitempty"`
	IsHolidayInclude *bool  `json:"is_holiday_include,omitempty"`
}

// PatchLeaveRequest mutates an existing record; omitted fields stay.
type PatchLeaveRequest struct {
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	LeaveType        string  `json:"leave_type"`
	IsAllDay         *bool   `json:"is_all_day,omitempty"`
	StartDate        *string `json:"start_date,omitempty"`
	EndDate          *string `json:"end_date,omitempty"`
	StartTime        *string `json:"start_time,omitempty"`
	EndTime          *string `json:"end_time,omitempty"`
	IsHolidayInclude *bool   `json:"is_holiday_include,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RecordDTO is one ledger row in API responses.
type RecordDTO struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	LeaveType       string  `json:"leave_type"`
	IsAllDay        bool    `json:"is_all_day"`
	IsHoliday       bool    `json:"is_holiday"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	OwnerID         int64   `json:"owner_id"`
	ExternalEventID string  `json:"external_event_id,omitempty"`
	UsedLeaveDays   float64 `json:"used_leave_days"`
	Comment         string  `json:"comment,omitempty"`
}

// BalanceDTO summarizes one member's annual consumption.
type BalanceDTO struct {
	MemberID   int64              `json:"member_id"`
	MemberName string             `json:"member_name"`
	Granted    float64            `json:"granted_days"`
	Used       float64            `json:"used_days"`
	Remaining  float64            `json:"remaining_days"`
	Details    []BalanceDetailDTO `json:"details,omitempty"`
}

// BalanceDetailDTO is one deductible record's contribution.
type BalanceDetailDTO struct {
	RecordID int64   `json:"record_id"`
	Title    string  `json:"title"`
	Days     float64 `json:"days"`
}

// ErrorDTO carries a rejection reason to the client.
type ErrorDTO struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func recordDTO(rec *leave.Record) RecordDTO {
	days, _ := rec.UsedDays().Float64()
	return RecordDTO{
		ID:              int64(rec.ID),
		Title:           rec.Title,
		Description:     rec.Description,
		LeaveType:       string(rec.Type),
		IsAllDay:        rec.AllDay,
		IsHoliday:       rec.Holiday,
		StartDate:       rec.StartDate.String(),
		EndDate:         rec.EndDate.String(),
		StartTime:       rec.StartTime.String(),
		EndTime:         rec.EndTime.String(),
		OwnerID:         rec.OwnerID,
		ExternalEventID: rec.ExternalEventID,
		UsedLeaveDays:   days,
		Comment:         rec.Comment,
	}
}

func balanceDTO(b *leave.Balance) BalanceDTO {
	granted, _ := b.Granted.Float64()
	used, _ := b.Used.Float64()
	remaining, _ := b.Remaining.Float64()
	dto := BalanceDTO{
		MemberID:   b.Member.ID,
		MemberName: b.Member.Name,
		Granted:    granted,
		Used:       used,
		Remaining:  remaining,
	}
	for _, d := range b.Details {
		days, _ := d.Days.Float64()
		dto.Details = append(dto.Details, BalanceDetailDTO{
			RecordID: int64(d.Record.ID),
			Title:    d.Record.Title,
			Days:     days,
		})
	}
	return dto
}

func (r CreateLeaveRequest) toDomain() (*leave.CreateRequest, error) {
	startDate, err := leave.ParseDate(r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("bad start_date %q", r.StartDate)
	}
	endDate, err := leave.ParseDate(r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("bad end_date %q", r.EndDate)
	}
	req := &leave.CreateRequest{
		Title:          r.Title,
		Description:    r.Description,
		Type:           leave.Type(r.LeaveType),
		AllDay:         r.IsAllDay,
		StartDate:      startDate,
		EndDate:        endDate,
		HolidayInclude: r.IsHolidayInclude,
	}
	if req.StartTime, err = parseOptionalTime(r.StartTime); err != nil {
		return nil, err
	}
	if req.EndTime, err = parseOptionalTime(r.EndTime); err != nil {
		return nil, err
	}
	return req, nil
}

func (r PatchLeaveRequest) toDomain() (*leave.PatchRequest, error) {
	patch := &leave.PatchRequest{
		Title:          r.Title,
		Description:    r.Description,
		Type:           leave.Type(r.LeaveType),
		AllDay:         r.IsAllDay,
		HolidayInclude: r.IsHolidayInclude,
	}
	var err error
	if r.StartDate != nil {
		d, err := leave.ParseDate(*r.StartDate)
		if err != nil {
			return nil, fmt.Errorf("bad start_date %q", *r.StartDate)
		}
		patch.StartDate = &d
	}
	if r.EndDate != nil {
		d, err := leave.ParseDate(*r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("bad end_date %q", *r.EndDate)
		}
		patch.EndDate = &d
	}
	if r.StartTime != nil {
		if patch.StartTime, err = parseOptionalTime(*r.StartTime); err != nil {
			return nil, err
		}
	}
	if r.EndTime != nil {
		if patch.EndTime, err = parseOptionalTime(*r.EndTime); err != nil {
			return nil, err
		}
	}
	return patch, nil
}

// parseOptionalTime parses "15:04"; empty strings mean "not provided".
func parseOptionalTime(s string) (*schedule.Minute, error) {
	if s == "" {
		return nil, nil
	}
	// 24:00 is allowed as an exclusive end-of-day; 24:01 and up are not.
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil ||
		h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return nil, fmt.Errorf("bad time %q, want HH:MM", s)
	}
	minute := schedule.MinuteOf(h, m)
	return &minute, nil
}
