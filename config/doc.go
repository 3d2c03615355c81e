// Package config loads the synthparams run configuration.
//
// Values start from the Default constants, are overlaid by an optional YAML
// file (SYNTHPARAMS_CONFIG) and finally by environment variables:
//
//	AUDIO_WAV_INPUT                input recording
//	EXPERIMENTATION                persist the model and write a reconstruction
//	SYNTHPARAMS_LOG_LEVEL          debug, info, warn or error
//	SYNTHPARAMS_SAMPLE_RATE        analysis sample rate in Hz
//	SYNTHPARAMS_DURATION           input length in seconds
//	SYNTHPARAMS_EXAMPLES           synthetic training set size
//	SYNTHPARAMS_EPOCHS             training epochs
//	SYNTHPARAMS_BATCH_SIZE         mini-batch size
//	SYNTHPARAMS_VALIDATION_SPLIT   validation fraction
//	SYNTHPARAMS_SEED               weight and target seed
//	SYNTHPARAMS_MODEL_DIR          local artifact root
//	SYNTHPARAMS_OUTPUT             reconstructed WAV path
//	SYNTHPARAMS_HISTORY_DIR        run history database, empty disables it
//	SYNTHPARAMS_S3_BUCKET          store artifacts in this bucket instead
//	SYNTHPARAMS_S3_PREFIX, SYNTHPARAMS_S3_REGION, SYNTHPARAMS_S3_ENDPOINT
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
package config
