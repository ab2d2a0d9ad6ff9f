// A read-only HTTP explorer over the governance state: producer candidates,
// voters, the governance singleton, and the current top-of-table schedule.
package explorer

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/gorilla/mux"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/liamzebedee/tinydpos-go/core/dpos"
)

type GovernanceExplorerServer struct {
	router *mux.Router
	log    *log.Logger

	host string
	port int

	gov *dpos.Governance

	// Pretty-prints vote totals and stake with thousands separators.
	printer *message.Printer
}

func NewGovernanceExplorerServer(gov *dpos.Governance, port int) *GovernanceExplorerServer {
	expl := &GovernanceExplorerServer{
		router:  mux.NewRouter(),
		log:     NewLogger("explorer", ""),
		host:    "0.0.0.0",
		port:    port,
		gov:     gov,
		printer: message.NewPrinter(language.English),
	}

	expl.router.HandleFunc("/governance", expl.getGovernance)
	expl.router.HandleFunc("/producers/", expl.getProducers)
	expl.router.HandleFunc("/producers/{owner}", expl.getProducer)
	expl.router.HandleFunc("/voters/{account}", expl.getVoter)
	expl.router.HandleFunc("/schedule", expl.getSchedule)

	return expl
}

func (expl *GovernanceExplorerServer) Start() {
	listenAddr := fmt.Sprintf("%s:%d", expl.host, expl.port)
	expl.log.Printf("Listening on http://%s", listenAddr)

	err := http.ListenAndServe(listenAddr, expl.router)
	if err != nil {
		expl.log.Fatal("ListenAndServe: ", err)
	}
}

func (expl *GovernanceExplorerServer) writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (expl *GovernanceExplorerServer) getGovernance(w http.ResponseWriter, r *http.Request) {
	gs, err := expl.gov.State()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	expl.writeJSON(w, map[string]any{
		"totalActivatedStake":        gs.TotalActivatedStake,
		"totalActivatedStakePretty":  expl.printer.Sprintf("%d", gs.TotalActivatedStake),
		"totalProducerVoteWeight":    gs.TotalProducerVoteWeight,
		"threshActivatedStakeTime":   gs.ThreshActivatedStakeTime,
		"lastProducerScheduleUpdate": gs.LastProducerScheduleUpdate,
		"lastProducerScheduleSize":   gs.LastProducerScheduleSize,
	})
}

func (expl *GovernanceExplorerServer) getProducers(w http.ResponseWriter, r *http.Request) {
	producers, err := expl.gov.TopProducers(dpos.MaxVoteProducers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(producers))
	for _, p := range producers {
		out = append(out, map[string]any{
			"owner":            p.Owner,
			"producerKey":      p.ProducerKey,
			"url":              p.URL,
			"location":         p.Location,
			"totalVotes":       p.TotalVotes,
			"totalVotesPretty": expl.printer.Sprintf("%.0f", p.TotalVotes),
			"isActive":         p.IsActive,
		})
	}
	expl.writeJSON(w, out)
}

func (expl *GovernanceExplorerServer) getProducer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	producer, err := expl.gov.GetProducer(vars["owner"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if producer == nil {
		http.Error(w, "Producer not found", http.StatusNotFound)
		return
	}
	expl.writeJSON(w, producer)
}

func (expl *GovernanceExplorerServer) getVoter(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	voter, err := expl.gov.GetVoter(vars["account"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if voter == nil {
		http.Error(w, "Voter not found", http.StatusNotFound)
		return
	}
	expl.writeJSON(w, voter)
}

func (expl *GovernanceExplorerServer) getSchedule(w http.ResponseWriter, r *http.Request) {
	producers, err := expl.gov.TopProducers(dpos.ScheduleSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	schedule := make([]dpos.ScheduleEntry, 0, len(producers))
	for _, p := range producers {
		schedule = append(schedule, dpos.ScheduleEntry{Owner: p.Owner, ProducerKey: p.ProducerKey})
	}
	expl.writeJSON(w, schedule)
}

func NewLogger(prefix string, prefix2 string) *log.Logger {
	prefixFull := color.HiGreenString(fmt.Sprintf("[%s] ", prefix))
	if prefix2 != "" {
		prefixFull += color.HiYellowString(fmt.Sprintf("(%s) ", prefix2))
	}
	return log.New(os.Stdout, prefixFull, log.Ldate|log.Ltime|log.Lmsgprefix)
}
