//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/engine"
	"github.com/inamate/stepcanvas/internal/session"
)

var (
	sess     *session.Session
	listener js.Value
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("send", js.FuncOf(send))
	api.Set("onMessage", js.FuncOf(onMessage))

	// --- Queries (frontend ← editor) ---
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("isDirty", js.FuncOf(isDirty))

	js.Global().Set("stepcanvasEditor", api)
	js.Global().Set("stepcanvasWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// deliver forwards editor events to the registered JS callback as JSON text.
func deliver(msg *session.Message) {
	if listener.Type() != js.TypeFunction {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	listener.Invoke(string(data))
}

func start(doc *document.Document, args []js.Value) interface{} {
	grid := 0.0
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		grid = args[1].Float()
	}
	sess = session.NewSession(doc.Project.ID, doc, engine.Grid{Size: grid}, deliver)
	sess.Welcome("wasm", "local")
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// loadDocument(json, gridSize?)
func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	doc, err := document.Decode([]byte(args[0].String()))
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	if len(doc.Steps) == 0 {
		return js.ValueOf(map[string]interface{}{"error": "document has no steps"})
	}
	return start(doc, args)
}

// loadSampleDocument(projectId?, gridSize?)
func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	projectID := "proj_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		projectID = args[0].String()
	}
	return start(document.NewSampleDocument(projectID), args)
}

// send(messageJSON) applies one protocol message. Results arrive through the
// onMessage callback.
func send(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return js.ValueOf(map[string]interface{}{"error": "no document loaded"})
	}
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing message JSON"})
	}

	var msg session.Message
	if err := json.Unmarshal([]byte(args[0].String()), &msg); err != nil {
		return js.ValueOf(map[string]interface{}{"error": "invalid message"})
	}
	sess.Dispatch(&msg)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func onMessage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		listener = js.Undefined()
		return nil
	}
	listener = args[0]
	return nil
}

func getDocument(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return js.Null()
	}
	data, err := sess.Document()
	if err != nil {
		return js.Null()
	}
	return js.ValueOf(string(data))
}

func isDirty(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess != nil && sess.Dirty())
}
