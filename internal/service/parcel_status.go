package service

import "github.com/courier-next/internal/constants"

// parcelTransitions 允许的状态流转；同状态重入单独处理
var parcelTransitions = map[constants.ParcelStatus][]constants.ParcelStatus{
	constants.ParcelStatusPending:   {constants.ParcelStatusPickedUp, constants.ParcelStatusCancelled},
	constants.ParcelStatusPickedUp:  {constants.ParcelStatusInTransit, constants.ParcelStatusCancelled},
	constants.ParcelStatusInTransit: {constants.ParcelStatusDelivered, constants.ParcelStatusCancelled},
	constants.ParcelStatusDelivered: {constants.ParcelStatusReceived},
	constants.ParcelStatusReceived:  {},
	constants.ParcelStatusCancelled: {},
}

// canTransitionParcel 非终态允许同状态重入（刷新位置、补齐结算）
func canTransitionParcel(from, to constants.ParcelStatus) bool {
	if from == to {
		return !from.IsTerminal()
	}
	for _, next := range parcelTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// isParcelNoop 终态上的同状态更新直接返回，不产生副作用
func isParcelNoop(from, to constants.ParcelStatus) bool {
	return from == to && from.IsTerminal()
}
