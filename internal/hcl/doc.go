// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file parsing, HCL-to-model translation,
// and converting evaluated cty values into plain Go values.
//
// A manifest file may contain any number of `task` and `operation` blocks:
//
//	task "text_classification" {
//	  true_label      = "true_label"
//	  predicted_label = "predicted_label"
//	  metrics         = ["accuracy"]
//	  training_split  = "sst2/train"
//
//	  feature "length" {
//	    dtype     = int
//	    operation = "get_length"
//	    bucket {
//	      strategy = "range"
//	      number   = 4
//	    }
//	  }
//	}
//
//	operation "get_length" {
//	  handler          = "GetLength"
//	  capability       = "featurizing"
//	  processed_fields = ["text"]
//	  generated_field  = "length"
//	  output_type      = int
//	}
package hcl
