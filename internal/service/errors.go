package service

import "errors"

var (
	ErrInvalidReward         = errors.New("invalid reward terms")
	ErrMissionTermsLocked    = errors.New("mission terms are locked once sellers have enrolled")
	ErrAlreadyEnrolled       = errors.New("already enrolled in this mission")
	ErrInvalidEnrollment     = errors.New("enrollment needs exactly one of seller_id and group_id")
	ErrNotGroupMember        = errors.New("seller is not a member of the group")
	ErrNotGroupEnrollment    = errors.New("enrollment does not belong to a seller group")
	ErrLinkAlreadyAttributed = errors.New("link is already attributed to another seller")
	ErrUnknownSetting        = errors.New("unknown setting")
	ErrInvalidSetting        = errors.New("invalid setting value")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrEmptySelection        = errors.New("payout confirmation selects no commissions")
	ErrInvalidStatus         = errors.New("invalid commission status")
)
