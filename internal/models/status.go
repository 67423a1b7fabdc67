// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// WarrantyStatus is the closed set of warranty lifecycle states.
type WarrantyStatus string

const (
	WarrantyDraft             WarrantyStatus = "draft"
	WarrantySubmitted         WarrantyStatus = "submitted"
	WarrantyPendingActivation WarrantyStatus = "pending_customer_activation"
	WarrantyActive            WarrantyStatus = "active"
	WarrantyExpired           WarrantyStatus = "expired"
	WarrantyCancelled         WarrantyStatus = "cancelled"
	WarrantyRejected          WarrantyStatus = "rejected"
)

// warrantyTransitions maps each state to the states it may legally enter.
var warrantyTransitions = map[WarrantyStatus][]WarrantyStatus{
	WarrantyDraft:             {WarrantySubmitted, WarrantyCancelled},
	WarrantySubmitted:         {WarrantyPendingActivation, WarrantyRejected, WarrantyCancelled},
	WarrantyPendingActivation: {WarrantyActive, WarrantyRejected, WarrantyCancelled},
	WarrantyActive:            {WarrantyExpired, WarrantyCancelled},
	WarrantyExpired:           {WarrantyActive, WarrantyCancelled},
	WarrantyRejected:          {WarrantySubmitted, WarrantyCancelled},
	WarrantyCancelled:         {},
}

// Valid reports whether s is a known warranty status.
func (s WarrantyStatus) Valid() bool {
	_, ok := warrantyTransitions[s]
	return ok
}

// CanTransitionTo reports whether the transition s -> next is legal.
func (s WarrantyStatus) CanTransitionTo(next WarrantyStatus) bool {
	for _, t := range warrantyTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s WarrantyStatus) Terminal() bool {
	return len(warrantyTransitions[s]) == 0
}

// InspectionStatus is the closed set of inspection states.
type InspectionStatus string

const (
	InspectionDraft     InspectionStatus = "draft"
	InspectionSubmitted InspectionStatus = "submitted"
	InspectionVerified  InspectionStatus = "verified"
	InspectionRejected  InspectionStatus = "rejected"
)

var inspectionTransitions = map[InspectionStatus][]InspectionStatus{
	InspectionDraft:     {InspectionSubmitted},
	InspectionSubmitted: {InspectionVerified, InspectionRejected},
	InspectionVerified:  {},
	InspectionRejected:  {InspectionSubmitted},
}

// Valid reports whether s is a known inspection status.
func (s InspectionStatus) Valid() bool {
	_, ok := inspectionTransitions[s]
	return ok
}

// CanTransitionTo reports whether the transition s -> next is legal.
func (s InspectionStatus) CanTransitionTo(next InspectionStatus) bool {
	for _, t := range inspectionTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// RecordType distinguishes the two lifecycle aggregates.
type RecordType string

const (
	RecordTypeWarranty   RecordType = "warranty"
	RecordTypeInspection RecordType = "inspection"
)

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	return t == RecordTypeWarranty || t == RecordTypeInspection
}
