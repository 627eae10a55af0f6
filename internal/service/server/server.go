package server

import (
	"context"
	"net/http"
	"sync"

	"e2ee_keyserver/internal/model"
	"e2ee_keyserver/internal/service/auth"
	"e2ee_keyserver/internal/service/registration"
	"e2ee_keyserver/internal/service/response"
	"e2ee_keyserver/internal/service/withdrawal"
	"e2ee_keyserver/internal/store/bundle"
	"e2ee_keyserver/internal/utils/log"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type (
	// AccountRepo is the account surface the server needs: lookup for
	// authentication and insert for the bootstrap endpoint.
	AccountRepo interface {
		GetByName(ctx context.Context, name string) (*model.Account, error)
		Create(ctx context.Context, account *model.Account) error
	}

	// GroupAdmin creates a group with its initial member accounts.
	GroupAdmin interface {
		Create(ctx context.Context, groupID string, members []model.AccountID) error
	}

	HttpServer struct {
		// mu serializes the mutating core operations (register,
		// replenish, withdraw). The bundle store's invariants assume
		// one unit of work at a time; this mutex is that assumption
		// made explicit.
		mu sync.Mutex

		addr          string
		accounts      AccountRepo
		devices       registration.DeviceRegistry
		groups        GroupAdmin
		store         *bundle.Store
		coordinator   *registration.Coordinator
		batcher       *withdrawal.Batcher
		dispatcher    *response.Dispatcher
		authenticator *auth.Authenticator
	}
)

func NewHttpServer(
	addr string,
	accounts AccountRepo,
	devices registration.DeviceRegistry,
	groups GroupAdmin,
	store *bundle.Store,
	coordinator *registration.Coordinator,
	batcher *withdrawal.Batcher,
	dispatcher *response.Dispatcher,
	authenticator *auth.Authenticator,
) *HttpServer {
	return &HttpServer{
		addr:          addr,
		accounts:      accounts,
		devices:       devices,
		groups:        groups,
		store:         store,
		coordinator:   coordinator,
		batcher:       batcher,
		dispatcher:    dispatcher,
		authenticator: authenticator,
	}
}

func (s *HttpServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/accounts", s.HandleCreateAccount()).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{name}/devices", s.HandleListDevices()).Methods(http.MethodGet)
	r.HandleFunc("/groups", s.HandleCreateGroup()).Methods(http.MethodPost)
	r.HandleFunc("/devices", s.HandleRegisterDevice()).Methods(http.MethodPost)
	r.HandleFunc("/pkbs/replenish", s.HandleReplenish()).Methods(http.MethodPost)
	r.HandleFunc("/pkbs/withdraw", s.HandleWithdraw()).Methods(http.MethodPost)
	r.HandleFunc("/pkbs/count/{device}", s.HandleCount()).Methods(http.MethodGet)
	r.HandleFunc("/responses/{requestID}", s.HandleTakeResponse()).Methods(http.MethodGet)
	r.HandleFunc("/init", s.HandleInitWS()).Methods(http.MethodGet)

	return r
}

func (s *HttpServer) Run() error {
	log.Info("key server listening", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, s.Router())
}

func (s *HttpServer) HandleInitWS() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		account, _, err := s.authenticator.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		if !s.dispatcher.Attach(account, conn) {
			conn.Close()
			return
		}

		go s.watchConn(account, conn)
	}
}

// watchConn blocks on the connection until the peer goes away, then detaches
// it so deliveries fall back to the mailbox.
func (s *HttpServer) watchConn(account model.AccountID, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug("response web socket closed", zap.Error(err))
			s.dispatcher.Detach(account)
			conn.Close()
			break
		}
	}
}
