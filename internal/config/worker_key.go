package config

type WorkerKeyStruct struct {
	PersistRegistrationLogQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistRegistrationLogQueue: "persist_registration_log_queue",
}
