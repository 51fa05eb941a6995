package config

type WorkerKeyStruct struct {
	PersistEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistEventsQueue: "persist_proctor_events_queue",
}
