package server

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"e2ee_keyserver/internal/model"
	"e2ee_keyserver/internal/repository/device"
	"e2ee_keyserver/internal/service/withdrawal"
	"e2ee_keyserver/internal/store/bundle"
	"e2ee_keyserver/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *HttpServer) HandleCreateAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" || len(req.IdentityKey) != ed25519.PublicKeySize {
			http.Error(w, "name and a 32-byte identity key are required", http.StatusBadRequest)
			return
		}

		existing, err := s.accounts.GetByName(ctx, req.Name)
		if err != nil {
			log.Error("account lookup failed", zap.Error(err))
			http.Error(w, "account lookup failed", http.StatusInternalServerError)
			return
		}

		if existing != nil {
			http.Error(w, "account already exists", http.StatusConflict)
			return
		}

		account := &model.Account{
			Name:        req.Name,
			IdentityKey: req.IdentityKey,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			log.Error("account create failed", zap.Error(err))
			http.Error(w, "account create failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func (s *HttpServer) HandleListDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		name := mux.Vars(r)["name"]
		devices, err := s.devices.Devices(ctx, model.AccountID(name))
		if err != nil {
			log.Error("device list failed", zap.Error(err))
			http.Error(w, "device list failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, &model.DeviceListResponse{
			Account: model.AccountID(name),
			Devices: devices,
		})
	}
}

func (s *HttpServer) HandleCreateGroup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, body, err := s.authenticator.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		var req model.CreateGroupRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if req.Group == "" {
			http.Error(w, "group id is required", http.StatusBadRequest)
			return
		}

		members := req.Members
		if !containsAccount(members, caller) {
			members = append(members, caller)
		}

		if err := s.groups.Create(ctx, req.Group, members); err != nil {
			log.Error("group create failed", zap.Error(err))
			http.Error(w, "group create failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func (s *HttpServer) HandleRegisterDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, body, err := s.authenticator.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		var req model.RegisterDeviceRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		err = s.coordinator.RegisterDevice(ctx, caller, req.Device, req.Bundles)
		s.mu.Unlock()

		switch {
		case errors.Is(err, bundle.ErrMaxPreKeyBundles):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, device.ErrDeviceExists):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			log.Error("device registration failed", zap.Error(err))
			http.Error(w, "device registration failed", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	}
}

func (s *HttpServer) HandleReplenish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, body, err := s.authenticator.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		var req model.ReplenishRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		key := model.DeviceKey{Account: caller, Device: req.Device}

		s.mu.Lock()
		err = s.store.Store(key, req.Bundles)
		s.mu.Unlock()

		if errors.Is(err, bundle.ErrMaxPreKeyBundles) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		if err != nil {
			log.Error("replenish failed", zap.Error(err))
			http.Error(w, "replenish failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func (s *HttpServer) HandleWithdraw() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, body, err := s.authenticator.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		var req model.WithdrawRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if req.RequestID == "" {
			http.Error(w, "request id is required", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		err = s.batcher.Withdraw(ctx, caller, req.RequestID, req.Wanted)
		s.mu.Unlock()

		if errors.Is(err, withdrawal.ErrWithdrawListTooLong) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err != nil {
			log.Error("withdraw failed", zap.Error(err))
			http.Error(w, "withdraw failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *HttpServer) HandleCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _, err := s.authenticator.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		deviceID, err := strconv.ParseUint(mux.Vars(r)["device"], 10, 32)
		if err != nil {
			http.Error(w, "invalid device id", http.StatusBadRequest)
			return
		}

		key := model.DeviceKey{Account: caller, Device: model.DeviceID(deviceID)}
		writeJSON(w, &model.CountResponse{
			Device: key.Device,
			Count:  s.store.Count(key),
		})
	}
}

func (s *HttpServer) HandleTakeResponse() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, _, err := s.authenticator.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		requestID := mux.Vars(r)["requestID"]
		resp, ok, err := s.dispatcher.Take(ctx, caller, requestID)
		if err != nil {
			log.Error("response pickup failed", zap.Error(err))
			http.Error(w, "response pickup failed", http.StatusInternalServerError)
			return
		}

		if !ok {
			http.Error(w, "no response for this request id", http.StatusNotFound)
			return
		}

		writeJSON(w, resp)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func containsAccount(accounts []model.AccountID, target model.AccountID) bool {
	for _, a := range accounts {
		if a == target {
			return true
		}
	}
	return false
}
